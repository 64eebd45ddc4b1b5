package suggest

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/ports"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
)

// Merger queries every key of a field group and merges the answers.
// It only reads from the store.
type Merger struct {
	store      ports.SuggestionStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxResults int
}

func NewMerger(store ports.SuggestionStore, logger *slog.Logger, m *metrics.Metrics, maxResults int) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		store:      store,
		logger:     logger,
		metrics:    m,
		maxResults: maxResults,
	}
}

// Search fetches query from every key concurrently and returns the merged,
// ranked list. A key whose fetch fails contributes nothing.
func (m *Merger) Search(ctx context.Context, group models.FieldGroup, query string) []models.Suggestion {
	results := make([][]models.Suggestion, len(group))

	var g errgroup.Group
	for i, key := range group {
		g.Go(func() error {
			start := time.Now()
			list, err := m.store.Fetch(ctx, key, query)
			m.metrics.ObserveFetch(key, time.Since(start), err)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Warn("suggestion fetch failed", "key", key, "query", query, "error", err)
				}
				return nil
			}
			results[i] = tagSource(list, key)
			return nil
		})
	}
	_ = g.Wait()

	return Merge(results, m.maxResults)
}

// LoadAll returns every known value of the group.
func (m *Merger) LoadAll(ctx context.Context, group models.FieldGroup) []models.Suggestion {
	return m.Search(ctx, group, "")
}

// Merge concatenates sources in order, keeps the first suggestion of every
// normalized value and sorts by usage count, most used first. The sort is
// stable, so equal counts keep their merged order. max > 0 truncates.
// The result is never nil.
func Merge(sources [][]models.Suggestion, max int) []models.Suggestion {
	seen := make(map[string]bool)
	merged := make([]models.Suggestion, 0)
	for _, source := range sources {
		for _, sug := range source {
			id := models.Normalize(sug.Value)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, sug)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].UsageCount > merged[j].UsageCount
	})

	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged
}

func tagSource(list []models.Suggestion, key string) []models.Suggestion {
	out := make([]models.Suggestion, len(list))
	for i, sug := range list {
		if sug.SourceKey == "" {
			sug.SourceKey = key
		}
		out[i] = sug
	}
	return out
}
