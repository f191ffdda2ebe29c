package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WorkflowCache is the slice of the cache repository the services use.
type WorkflowCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const (
	boardCacheKey     = "workflow:board"
	boardCachePattern = "workflow:board*"
)

func orderCacheKey(orderItemID string) string {
	return "workflow:order:" + orderItemID
}

// invalidateWorkflowCache drops the board and the order item's detail entry.
// Cache trouble is logged and swallowed; reads fall through to the database.
func invalidateWorkflowCache(ctx context.Context, cache WorkflowCache, logger *zap.Logger, orderItemID string) {
	if cache == nil {
		return
	}
	if err := cache.DeleteByPattern(ctx, boardCachePattern); err != nil {
		logger.Warn("failed to invalidate board cache", zap.Error(err))
	}
	if orderItemID == "" {
		return
	}
	if err := cache.DeleteByPattern(ctx, orderCacheKey(orderItemID)+"*"); err != nil {
		logger.Warn("failed to invalidate order cache",
			zap.String("order_item_id", orderItemID), zap.Error(err))
	}
}
