package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateCertificateCache invalidates all caches tied to one certificate.
// Called after activation toggles, claims and deletes so the public verify
// endpoint never serves a stale record.
func InvalidateCertificateCache(ctx context.Context, cm *CacheManager, certificateID uint, refNo string) {
	SafeDelete(ctx, cm.Certificate,
		fmt.Sprintf("id:%d", certificateID),
		fmt.Sprintf("ref:%s", refNo))

	SafeDelete(ctx, cm.Verification, fmt.Sprintf("ref:%s", refNo))
	SafeInvalidatePattern(ctx, cm.Certificate, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, "dashboard:*")
}
