package model

import "time"

// PricingSettings は管理画面から更新されるメンバーシップ割引設定。
// このサービスからは読み取り専用。
type PricingSettings struct {
	DiscountAmountBaht int64
	IsDiscountActive   bool
	DiscountStartsAt   *time.Time
	DiscountEndsAt     *time.Time
}

// DiscountAmountMinor は割引額を最小通貨単位（サタン）で返す。
func (s *PricingSettings) DiscountAmountMinor() int64 {
	return s.DiscountAmountBaht * 100
}

// PricingStatus は価格解決の結果種別。
type PricingStatus string

const (
	// PricingResolved は設定を読み取れた状態。
	PricingResolved PricingStatus = "resolved"
	// PricingFallback は設定の読み取りに失敗し、割引なしにフォールバックした状態。
	PricingFallback PricingStatus = "fallback"
	// PricingUnavailable は設定ストアが構成されていない状態。
	PricingUnavailable PricingStatus = "unavailable"
)

// Pricing は価格解決の結果。金額はすべて最小通貨単位。
type Pricing struct {
	Status         PricingStatus
	BasePrice      int64
	DiscountAmount int64
	PromoApplied   bool
	FinalPrice     int64
}

// Transaction はStripe決済による入金記録を表す。
type Transaction struct {
	ID              string
	AccountID       string
	AmountBaht      float64
	CreditsAdded    int
	Status          string
	PaymentMethod   string
	StripeSessionID string
	CreatedAt       time.Time
}
