package query

import (
	"strings"
	"time"

	"go.trai.ch/memo/internal/core/domain"
)

// largeResult is the payload size above which adaptive TTL assumes the
// entry crowds the store and halves its lifetime.
const largeResult = 1 << 20

// ttlFor computes the TTL for a freshly written entry per the configured
// expiration strategy. The result is always clamped to [minTtl, maxTtl].
func ttlFor(cfg domain.ExpirationConfig, base time.Duration, lowered string, resultSize int64, tables int) time.Duration {
	var ttl time.Duration
	switch cfg.Strategy {
	case domain.ExpireAdaptive:
		ttl = adaptiveTTL(base, lowered, resultSize)
	case domain.ExpireDependency:
		ttl = dependencyTTL(cfg.MaxTTL, tables)
	default:
		ttl = base
	}
	return clamp(ttl, cfg.MinTTL, cfg.MaxTTL)
}

// adaptiveTTL scales the base TTL by query complexity and result size.
// Expensive queries are worth keeping longer; oversized results are worth
// keeping shorter.
func adaptiveTTL(base time.Duration, lowered string, resultSize int64) time.Duration {
	ttl := base

	// Each join roughly doubles the cost of recomputation.
	joins := strings.Count(lowered, " join ")
	for range min(joins, 3) {
		ttl += ttl / 2
	}
	if strings.Contains(lowered, " group by ") || strings.Contains(lowered, " distinct ") {
		ttl += ttl / 2
	}

	if resultSize > largeResult {
		ttl /= 2
	}
	return ttl
}

// dependencyTTL shortens lifetime with the number of tables an entry reads.
// A result touching many tables is invalidated by more writes, so letting
// it live long buys little.
func dependencyTTL(maxTTL time.Duration, tables int) time.Duration {
	if tables < 1 {
		tables = 1
	}
	return maxTTL / time.Duration(tables)
}

// extendTTL grows a hot entry's TTL by the configured factor, clamped.
func extendTTL(cfg domain.ExpirationConfig, current time.Duration) time.Duration {
	extended := time.Duration(float64(current) * cfg.ExtensionFactor)
	return clamp(extended, cfg.MinTTL, cfg.MaxTTL)
}

func clamp(ttl, minTTL, maxTTL time.Duration) time.Duration {
	if ttl < minTTL {
		return minTTL
	}
	if ttl > maxTTL {
		return maxTTL
	}
	return ttl
}
