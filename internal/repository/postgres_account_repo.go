package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/satduang/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

const accountColumns = `id, email, metadata, subscription_status, credits, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner, extra ...any) (*model.Account, error) {
	account := &model.Account{}
	var metadata []byte
	var status string

	dest := []any{
		&account.ID, &account.Email, &metadata, &status,
		&account.Credits, &account.CreatedAt, &account.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &account.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode account metadata: %w", err)
		}
	}
	account.SubscriptionStatus = model.SubscriptionStatus(status)

	return account, nil
}

// UpsertByEmail はメールアドレスをキーにアカウントを作成、またはメタデータを置き換える。
// UNIQUE(email)制約を利用したINSERT ON CONFLICTで実装するため、
// 同じ外部IDで同時にログインしても重複アカウントは作られない。
// 新規作成かどうかはシステム列xmaxで判定する。
func (r *PostgresAccountRepo) UpsertByEmail(ctx context.Context, email string, metadata model.AccountMetadata) (*model.Account, bool, error) {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode account metadata: %w", err)
	}

	now := time.Now().UTC()
	var created bool

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (id, email, email_confirmed_at, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $3, $3)
		 ON CONFLICT (email) DO UPDATE SET
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+accountColumns+`, (xmax = 0) AS inserted`,
		uuid.New().String(), email, now, string(encoded),
	)

	account, err := scanAccount(row, &created)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert account: %w", err)
	}

	return account, created, nil
}

// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return account, nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		// uuid型へのキャストエラーをDBエラーとして扱わない
		return nil, nil
	}

	account, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}
	return account, nil
}

// SetSubscriptionStatus はメンバーシップ状態を更新する。
func (r *PostgresAccountRepo) SetSubscriptionStatus(ctx context.Context, id string, status model.SubscriptionStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET subscription_status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}
	return requireOneRow(result, "account", id)
}

func requireOneRow(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %s", kind, id)
	}
	return nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
