package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/satduang/internal/model"
)

// PostgresSignInTokenRepo はPostgreSQLを使用したサインイントークンリポジトリ。
type PostgresSignInTokenRepo struct {
	db *sql.DB
}

// NewPostgresSignInTokenRepo はPostgresSignInTokenRepoを生成する。
func NewPostgresSignInTokenRepo(db *sql.DB) *PostgresSignInTokenRepo {
	return &PostgresSignInTokenRepo{db: db}
}

// Create はトークンを保存する。
func (r *PostgresSignInTokenRepo) Create(ctx context.Context, token *model.SignInToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sign_in_tokens (digest, account_id, email, type, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.Digest, token.AccountID, token.Email, token.Type, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sign-in token: %w", err)
	}
	return nil
}

// Consume は未使用かつ有効期限内のトークンを使用済みにして返す。
// 消費できなかった場合はnilを返す。
func (r *PostgresSignInTokenRepo) Consume(ctx context.Context, digest string) (*model.SignInToken, error) {
	token := &model.SignInToken{}
	var consumedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`UPDATE sign_in_tokens SET consumed_at = now()
		 WHERE digest = $1 AND consumed_at IS NULL AND expires_at > now()
		 RETURNING digest, account_id, email, type, expires_at, consumed_at, created_at`,
		digest,
	).Scan(
		&token.Digest, &token.AccountID, &token.Email, &token.Type,
		&token.ExpiresAt, &consumedAt, &token.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume sign-in token: %w", err)
	}

	if consumedAt.Valid {
		token.ConsumedAt = &consumedAt.Time
	}

	return token, nil
}

// DeleteStale は期限切れ、またはconsumedBeforeより前に使用済みになったトークンを削除する。
func (r *PostgresSignInTokenRepo) DeleteStale(ctx context.Context, consumedBefore time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sign_in_tokens
		 WHERE expires_at <= now() OR (consumed_at IS NOT NULL AND consumed_at < $1)`,
		consumedBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale sign-in tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ SignInTokenRepository = (*PostgresSignInTokenRepo)(nil)
