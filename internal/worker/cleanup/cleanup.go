// Package cleanup は認証データの定期削除ジョブを提供する。
// 期限切れまたは使用済みのサインイントークンと、期限切れのセッションを
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// TokenPurger はサインイントークンの削除インターフェース。
// repository.SignInTokenRepositoryの部分集合。
type TokenPurger interface {
	DeleteStale(ctx context.Context, consumedBefore time.Time) (int64, error)
}

// SessionPurger はセッションの削除インターフェース。
// repository.SessionRepositoryの部分集合。
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupJob は不要になった認証データの削除ジョブ。
// 削除条件は時刻のみで決まるため、何度実行しても結果は変わらない。
type CleanupJob struct {
	tokens   TokenPurger
	sessions SessionPurger
	logger   *slog.Logger
	now      func() time.Time

	ConsumedRetention time.Duration // 使用済みトークンの保持期間（デフォルト: 24時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(tokens TokenPurger, sessions SessionPurger, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		tokens:            tokens,
		sessions:          sessions,
		logger:            logger,
		now:               time.Now,
		ConsumedRetention: 24 * time.Hour,
	}
}

// Start は起動直後に1回、以降interval間隔でRunを実行する。
// コンテキストがキャンセルされるまで戻らない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	j.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			j.runAndLog(ctx)
		}
	}
}

func (j *CleanupJob) runAndLog(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// Run はトークンとセッションを削除する。
// 片方が失敗してももう片方は実行し、両方のエラーをまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	consumedBefore := j.now().Add(-j.ConsumedRetention)

	tokenCount, tokenErr := j.tokens.DeleteStale(ctx, consumedBefore)
	if tokenErr != nil {
		tokenErr = fmt.Errorf("サインイントークンの削除に失敗: %w", tokenErr)
	}

	sessionCount, sessionErr := j.sessions.DeleteExpired(ctx)
	if sessionErr != nil {
		sessionErr = fmt.Errorf("セッションの削除に失敗: %w", sessionErr)
	}

	if err := errors.Join(tokenErr, sessionErr); err != nil {
		return err
	}

	j.logger.Info("クリーンアップが完了しました",
		slog.Int64("deleted_sign_in_tokens", tokenCount),
		slog.Int64("deleted_sessions", sessionCount),
		slog.Time("consumed_before", consumedBefore),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
