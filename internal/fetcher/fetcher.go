// -----------------------------------------------------------------------
// Tiered Fetcher - ordered fetch strategies with a uniform result envelope
// -----------------------------------------------------------------------

package fetcher

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/harvest/internal/models"
)

// Strategy is one way of fetching a URL. Strategies are tried in order
// until one succeeds; adding a tier (a cache-first strategy, another
// renderer) means appending to the list, not touching call sites.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (*models.FetchResult, error)
}

// TieredFetcher walks an ordered strategy list and returns a uniform
// FetchResult regardless of which tier produced it. Total failure is a
// result, not an error: the caller records it and moves on.
type TieredFetcher struct {
	strategies []Strategy
	logger     arbor.ILogger
}

// NewTieredFetcher creates a fetcher over the given strategies.
func NewTieredFetcher(logger arbor.ILogger, strategies ...Strategy) *TieredFetcher {
	return &TieredFetcher{
		strategies: strategies,
		logger:     logger,
	}
}

// Fetch tries each strategy in order. The first successful result wins; if
// every tier fails, the last definitive response (e.g. an HTTP 4xx) is
// returned when one exists, else an empty result tagged with tier "none".
func (f *TieredFetcher) Fetch(ctx context.Context, url string) *models.FetchResult {
	var lastResult *models.FetchResult

	for _, strategy := range f.strategies {
		if ctx.Err() != nil {
			break
		}

		result, err := strategy.Fetch(ctx, url)
		if err != nil {
			f.logger.Debug().
				Err(err).
				Str("url", url).
				Str("tier", strategy.Name()).
				Msg("Fetch tier failed")
			if result != nil {
				lastResult = result
			}
			continue
		}
		if result != nil && result.OK {
			return result
		}
		if result != nil {
			lastResult = result
		}
	}

	if lastResult != nil {
		return lastResult
	}
	return &models.FetchResult{
		OK:       false,
		FinalURL: url,
		Tier:     models.TierNone,
	}
}
