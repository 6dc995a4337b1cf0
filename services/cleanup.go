package services

import (
	"context"
	"fmt"
	"time"

	"github.com/lazypandaa/connect/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartTokenCleanup по расписанию удаляет просроченные токены.
// Планировщик останавливается вместе с ctx.
func StartTokenCleanup(ctx context.Context, schedule string, tokens *TokenService) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		purgeExpiredTokens(runCtx, tokens)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}

	scheduler.Start()
	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()
	return scheduler, nil
}

func purgeExpiredTokens(ctx context.Context, tokens *TokenService) {
	removed, err := tokens.PurgeExpired(ctx)
	if err != nil {
		logger.L().Error("failed to purge expired tokens", zap.Error(err))
		return
	}
	if removed > 0 {
		logger.L().Info("expired tokens purged", zap.Int64("count", removed))
	}
}
