// Package billing は決済セッションの構築とStripeからの入金反映を提供する。
package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/satduang/internal/model"
)

// PricingSettingsReader は割引設定の読み取りインターフェース。
// repository.PricingSettingsRepositoryの部分集合として定義する。
type PricingSettingsReader interface {
	Get(ctx context.Context) (*model.PricingSettings, error)
}

// PricingResolver はサブスクリプション価格に割引設定を適用する。
type PricingResolver struct {
	settings PricingSettingsReader
	now      func() time.Time
}

// NewPricingResolver はPricingResolverを生成する。
// settingsがnilの場合、解決結果は常にPricingUnavailableになる。
func NewPricingResolver(settings PricingSettingsReader) *PricingResolver {
	return &PricingResolver{
		settings: settings,
		now:      time.Now,
	}
}

// Resolve は基本価格（最小通貨単位）に対する最終価格を求める。
// 設定の読み取りに失敗してもエラーは返さず、割引なしにフォールバックする。
// 割引期間は終了日時のみで判定し、開始日時は参照しない。
func (r *PricingResolver) Resolve(ctx context.Context, basePrice int64) model.Pricing {
	pricing := model.Pricing{
		Status:     model.PricingResolved,
		BasePrice:  basePrice,
		FinalPrice: basePrice,
	}

	if r == nil || r.settings == nil {
		slog.Warn("pricing settings store not configured, promotion disabled")
		pricing.Status = model.PricingUnavailable
		return pricing
	}

	settings, err := r.settings.Get(ctx)
	if err != nil {
		slog.Warn("failed to read pricing settings, falling back to base price",
			slog.String("error", err.Error()),
		)
		pricing.Status = model.PricingFallback
		return pricing
	}

	discount := settings.DiscountAmountMinor()
	withinWindow := settings.DiscountEndsAt != nil && settings.DiscountEndsAt.After(r.now())

	if settings.IsDiscountActive && withinWindow && discount > 0 && discount < basePrice {
		pricing.PromoApplied = true
		pricing.DiscountAmount = discount
		pricing.FinalPrice = basePrice - discount
	}

	return pricing
}
