package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/satduang/internal/model"
)

// PostgresTransactionRepo はPostgreSQLを使用した入金記録リポジトリ。
type PostgresTransactionRepo struct {
	db *sql.DB
}

// NewPostgresTransactionRepo はPostgresTransactionRepoを生成する。
func NewPostgresTransactionRepo(db *sql.DB) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{db: db}
}

// RecordCheckout は入金記録の挿入とアカウントへの反映を1つのDBトランザクションで行う。
// stripe_session_idが記録済みの場合は何も変更せずfalseを返す。
// エラー時はロールバックされるため、同じセッションを再処理できる。
func (r *PostgresTransactionRepo) RecordCheckout(ctx context.Context, txn *model.Transaction, kind model.PackageKind) (bool, error) {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var claimedID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO transactions (id, account_id, amount, credits_added, status, payment_method, stripe_session_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (stripe_session_id) DO NOTHING
		 RETURNING id`,
		txn.ID, txn.AccountID, txn.AmountBaht, txn.CreditsAdded, txn.Status, txn.PaymentMethod,
		txn.StripeSessionID, txn.CreatedAt,
	).Scan(&claimedID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim stripe session: %w", err)
	}

	var result sql.Result
	switch kind {
	case model.PackageKindSubscription:
		result, err = tx.ExecContext(ctx,
			`UPDATE accounts SET subscription_status = $2, updated_at = now() WHERE id = $1`,
			txn.AccountID, string(model.SubscriptionStatusActive),
		)
	default:
		result, err = tx.ExecContext(ctx,
			`UPDATE accounts SET credits = credits + $2, updated_at = now() WHERE id = $1`,
			txn.AccountID, txn.CreditsAdded,
		)
	}
	if err != nil {
		return false, fmt.Errorf("failed to apply checkout to account: %w", err)
	}
	if err := requireOneRow(result, "account", txn.AccountID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit checkout: %w", err)
	}
	return true, nil
}

// compile-time interface check
var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
