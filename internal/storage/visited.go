// -----------------------------------------------------------------------
// Visited Store - persistent exact-URL deduplication
// -----------------------------------------------------------------------

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/harvest/internal/common"
)

// VisitedURL records one URL the pipeline has claimed. Keyed by the
// normalized URL string.
type VisitedURL struct {
	URL        string `badgerhold:"key"`
	Provenance string
	FirstSeen  time.Time
}

// VisitedStore is the single source of truth preventing re-fetching and
// link-following loops. Insert-if-absent gives the "marked visited exactly
// once, before fetch" invariant an atomic primitive, and persistence makes
// interrupted runs resumable alongside the append-only ledger.
type VisitedStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewVisitedStore opens (or creates) the visited database. With
// ResetOnStartup the existing database is deleted first for a fresh run.
func NewVisitedStore(config *common.StorageConfig, logger arbor.ILogger) (*VisitedStore, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting visited store (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete visited store directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Quiet the default badger logger; arbor owns output

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open visited store: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Visited store opened")

	return &VisitedStore{
		store:  store,
		logger: logger,
	}, nil
}

// MarkVisited claims a normalized URL. Returns true if the URL was already
// visited (by this run or a previous one); false if this call claimed it.
func (v *VisitedStore) MarkVisited(url, provenance string) (bool, error) {
	err := v.store.Insert(url, &VisitedURL{
		URL:        url,
		Provenance: provenance,
		FirstSeen:  time.Now(),
	})
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return true, nil
		}
		return false, fmt.Errorf("failed to mark URL visited: %w", err)
	}
	return false, nil
}

// Contains reports whether a normalized URL has been claimed.
func (v *VisitedStore) Contains(url string) (bool, error) {
	var record VisitedURL
	err := v.store.Get(url, &record)
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close closes the underlying database.
func (v *VisitedStore) Close() error {
	if v.store != nil {
		return v.store.Close()
	}
	return nil
}
