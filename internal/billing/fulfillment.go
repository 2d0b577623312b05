package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/hitoshi/satduang/internal/model"
	"github.com/hitoshi/satduang/internal/repository"
)

// webhookTolerance は署名タイムスタンプの許容誤差。
const webhookTolerance = 300 * time.Second

// 入金記録の値
const (
	transactionStatusApproved = "approved"
	paymentMethodPromptPay    = "stripe_promptpay"
	paymentMethodCard         = "stripe_card"
)

// FulfillmentOutcome はWebhookイベントの処理結果。
type FulfillmentOutcome string

const (
	OutcomeFulfilled FulfillmentOutcome = "fulfilled"
	OutcomeUnpaid    FulfillmentOutcome = "unpaid"
	OutcomeDuplicate FulfillmentOutcome = "duplicate"
	OutcomeCanceled  FulfillmentOutcome = "canceled"
	OutcomeIgnored   FulfillmentOutcome = "ignored"
)

// AccountWriter は解約の反映で使うアカウント更新のインターフェース。
// repository.AccountRepositoryの部分集合として定義する。
type AccountWriter interface {
	SetSubscriptionStatus(ctx context.Context, id string, status model.SubscriptionStatus) error
}

// FulfillmentService はStripeのWebhookを検証し、チェックアウトのメタデータに従って
// クレジット付与やメンバーシップ状態の更新を行う。
type FulfillmentService struct {
	accounts      AccountWriter
	transactions  repository.TransactionRepository
	webhookSecret string
}

// NewFulfillmentService はFulfillmentServiceを生成する。
func NewFulfillmentService(accounts AccountWriter, transactions repository.TransactionRepository, webhookSecret string) *FulfillmentService {
	return &FulfillmentService{
		accounts:      accounts,
		transactions:  transactions,
		webhookSecret: webhookSecret,
	}
}

// HandleEvent は署名を検証してイベントを処理する。
// 同じチェックアウトセッションは1回しか反映しない。
func (s *FulfillmentService) HandleEvent(ctx context.Context, payload []byte, signature string) (FulfillmentOutcome, error) {
	if s.webhookSecret == "" {
		return "", model.NewWebhookUnconfiguredError()
	}
	if signature == "" {
		return "", model.NewMissingSignatureError()
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhookTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		slog.Warn("invalid webhook signature", slog.String("error", err.Error()))
		return "", model.NewInvalidSignatureError()
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return "", model.NewInvalidRequestError(fmt.Sprintf("Webhook Error: %v", err))
		}
		return s.fulfillCheckout(ctx, &session)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			return "", model.NewInvalidRequestError(fmt.Sprintf("Webhook Error: %v", err))
		}
		return s.cancelSubscription(ctx, &subscription)

	default:
		slog.Debug("ignoring webhook event", slog.String("type", string(event.Type)))
		return OutcomeIgnored, nil
	}
}

// fulfillCheckout は支払い済みのチェックアウトセッションを反映する。
func (s *FulfillmentService) fulfillCheckout(ctx context.Context, session *stripe.CheckoutSession) (FulfillmentOutcome, error) {
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		slog.Info("checkout session not paid yet, skipping", slog.String("session_id", session.ID))
		return OutcomeUnpaid, nil
	}

	accountID := session.Metadata[MetadataUserID]
	kind := model.PackageKind(session.Metadata[MetadataPackageKind])
	if kind == "" {
		kind = model.PackageKindOneTime
	}
	credits, _ := strconv.Atoi(session.Metadata[MetadataCredits])

	_, uuidErr := uuid.Parse(accountID)
	if uuidErr != nil || (kind == model.PackageKindOneTime && credits <= 0) {
		slog.Error("missing checkout metadata",
			slog.String("session_id", session.ID),
			slog.String("account_id", accountID),
			slog.Int("credits", credits),
		)
		return "", model.NewMissingMetadataError()
	}

	paymentMethod := paymentMethodCard
	switch kind {
	case model.PackageKindSubscription:
		credits = 0
	default:
		if slices.Contains(session.PaymentMethodTypes, PaymentMethodPromptPay) {
			paymentMethod = paymentMethodPromptPay
		}
	}

	// 入金記録の挿入と反映は同じDBトランザクションで行う。
	// 失敗時はエラーを返し、Stripeの再送で再処理させる。
	applied, err := s.transactions.RecordCheckout(ctx, &model.Transaction{
		AccountID:       accountID,
		AmountBaht:      float64(session.AmountTotal) / 100,
		CreditsAdded:    credits,
		Status:          transactionStatusApproved,
		PaymentMethod:   paymentMethod,
		StripeSessionID: session.ID,
	}, kind)
	if err != nil {
		return "", fmt.Errorf("failed to record checkout %s: %w", session.ID, err)
	}
	if !applied {
		slog.Info("checkout session already fulfilled", slog.String("session_id", session.ID))
		return OutcomeDuplicate, nil
	}

	slog.Info("checkout session fulfilled",
		slog.String("session_id", session.ID),
		slog.String("account_id", accountID),
		slog.String("package_kind", string(kind)),
		slog.Int("credits", credits),
	)
	return OutcomeFulfilled, nil
}

// cancelSubscription はサブスクリプションのメタデータにあるアカウントを解約済みにする。
func (s *FulfillmentService) cancelSubscription(ctx context.Context, subscription *stripe.Subscription) (FulfillmentOutcome, error) {
	accountID := subscription.Metadata[MetadataUserID]
	if accountID == "" {
		slog.Warn("subscription without account metadata", slog.String("subscription_id", subscription.ID))
		return OutcomeIgnored, nil
	}

	if err := s.accounts.SetSubscriptionStatus(ctx, accountID, model.SubscriptionStatusCanceled); err != nil {
		return "", fmt.Errorf("failed to cancel subscription: %w", err)
	}

	slog.Info("subscription canceled",
		slog.String("subscription_id", subscription.ID),
		slog.String("account_id", accountID),
	)
	return OutcomeCanceled, nil
}
