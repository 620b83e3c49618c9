package artist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-ticket-sync/internal/logger"
)

const (
	// acceptSimilarity is the floor for treating two names as the same
	// artist; shortCircuitSimilarity ends the scan early on a near-exact hit.
	acceptSimilarity       = 0.85
	shortCircuitSimilarity = 0.95
)

// Source lists the canonical artist names currently persisted. The store's
// events table satisfies this.
type Source interface {
	DistinctArtists(ctx context.Context) ([]string, error)
}

// Matcher resolves extracted names against the set of known artists using
// edit-distance similarity. The known set is cached wholesale with a TTL and
// refreshed single-flight; between refreshes it is read-only.
type Matcher struct {
	mu        sync.RWMutex
	byNorm    map[string]string
	expiresAt time.Time

	ttl    time.Duration
	source Source
	logger *logger.Logger
}

func NewMatcher(source Source, ttl time.Duration, log *logger.Logger) *Matcher {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Matcher{
		byNorm: map[string]string{},
		ttl:    ttl,
		source: source,
		logger: log,
	}
}

// Resolve maps an extracted name to its canonical spelling. The returned
// similarity is 1.0 for an exact normalized match, the best edit-distance
// similarity for a fuzzy match, and 0 when the name is new. Deduplication is
// heuristic: near-misses in both directions are expected and acceptable.
func (m *Matcher) Resolve(ctx context.Context, name string) (string, float64, error) {
	norm := Normalize(name)
	if norm == "" {
		return name, 0, nil
	}

	if err := m.refreshIfStale(ctx); err != nil {
		return "", 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if canonical, ok := m.byNorm[norm]; ok {
		return canonical, 1.0, nil
	}

	// Only compare against names of comparable length; this bounds the
	// number of distance computations per lookup.
	maxLenDiff := len(norm) / 5
	if maxLenDiff < 3 {
		maxLenDiff = 3
	}

	bestCanonical := ""
	bestSimilarity := 0.0
	for candidate, canonical := range m.byNorm {
		diff := len(candidate) - len(norm)
		if diff < 0 {
			diff = -diff
		}
		if diff > maxLenDiff {
			continue
		}

		maxLen := len(candidate)
		if len(norm) > maxLen {
			maxLen = len(norm)
		}
		if maxLen == 0 {
			continue
		}

		distance := levenshtein(norm, candidate)
		similarity := float64(maxLen-distance) / float64(maxLen)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			bestCanonical = canonical
		}
		if bestSimilarity >= shortCircuitSimilarity {
			break
		}
	}

	if bestSimilarity >= acceptSimilarity {
		return bestCanonical, bestSimilarity, nil
	}

	// No known artist is close enough; the name is new.
	return name, 0, nil
}

// refreshIfStale reloads the known-artist set once the TTL lapses. The
// double-check under the write lock keeps concurrent pipelines from
// refreshing more than once.
func (m *Matcher) refreshIfStale(ctx context.Context) error {
	m.mu.RLock()
	fresh := time.Now().Before(m.expiresAt)
	m.mu.RUnlock()
	if fresh {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if time.Now().Before(m.expiresAt) {
		return nil
	}

	names, err := m.source.DistinctArtists(ctx)
	if err != nil {
		return fmt.Errorf("refresh artist cache: %w", err)
	}

	byNorm := make(map[string]string, len(names))
	for _, name := range names {
		norm := Normalize(name)
		if norm == "" {
			continue
		}
		if _, exists := byNorm[norm]; !exists {
			byNorm[norm] = name
		}
	}

	m.byNorm = byNorm
	m.expiresAt = time.Now().Add(m.ttl)
	if m.logger != nil {
		m.logger.Debug("ARTIST", fmt.Sprintf("Artist cache refreshed: %d names", len(byNorm)))
	}
	return nil
}
