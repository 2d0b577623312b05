package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/satduang/internal/model"
)

// PostgresPricingSettingsRepo はmembership_discount_settingsテーブルの読み取りリポジトリ。
// 設定は管理画面側で更新されるため、書き込みメソッドは持たない。
type PostgresPricingSettingsRepo struct {
	db *sql.DB
}

// NewPostgresPricingSettingsRepo はPostgresPricingSettingsRepoを生成する。
func NewPostgresPricingSettingsRepo(db *sql.DB) *PostgresPricingSettingsRepo {
	return &PostgresPricingSettingsRepo{db: db}
}

// Get はid=1の割引設定を返す。行が存在しない場合はエラーを返す。
func (r *PostgresPricingSettingsRepo) Get(ctx context.Context) (*model.PricingSettings, error) {
	settings := &model.PricingSettings{}
	var startsAt, endsAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT discount_amount_baht, is_discount_active, discount_starts_at, discount_ends_at
		 FROM membership_discount_settings WHERE id = 1`,
	).Scan(&settings.DiscountAmountBaht, &settings.IsDiscountActive, &startsAt, &endsAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing settings: %w", err)
	}

	if startsAt.Valid {
		settings.DiscountStartsAt = &startsAt.Time
	}
	if endsAt.Valid {
		settings.DiscountEndsAt = &endsAt.Time
	}

	return settings, nil
}

// compile-time interface check
var _ PricingSettingsRepository = (*PostgresPricingSettingsRepo)(nil)
