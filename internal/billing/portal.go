package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/satduang/internal/model"
)

// PortalService は決済プロバイダーの請求管理ポータルへのセッションを発行する。
type PortalService struct {
	gateway PaymentGateway
	siteURL string
}

// NewPortalService はPortalServiceを生成する。
func NewPortalService(gateway PaymentGateway, siteURL string) *PortalService {
	return &PortalService{
		gateway: gateway,
		siteURL: siteURL,
	}
}

// CreatePortal はメールアドレスが一致する顧客のポータルURLを返す。
// 顧客が存在しない場合はCUSTOMER_NOT_FOUNDを返し、ポータルセッションは作成しない。
func (s *PortalService) CreatePortal(ctx context.Context, email, origin string) (string, error) {
	if email == "" {
		return "", model.NewInvalidRequestError("Missing userEmail")
	}

	customerID, err := s.gateway.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to search customer: %w", err)
	}
	if customerID == "" {
		return "", model.NewCustomerNotFoundError()
	}

	url, err := s.gateway.CreatePortalSession(ctx, customerID, resolveOrigin(origin, s.siteURL)+"/profile")
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}

	slog.Info("billing portal session created", slog.String("customer_id", customerID))
	return url, nil
}
