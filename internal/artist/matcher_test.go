package artist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	names []string
	calls int
}

func (f *fakeSource) DistinctArtists(ctx context.Context) ([]string, error) {
	f.calls++
	return f.names, nil
}

func TestResolveExactNormalizedMatch(t *testing.T) {
	source := &fakeSource{names: []string{"The Midnight", "Khruangbin"}}
	matcher := NewMatcher(source, time.Minute, nil)

	canonical, similarity, err := matcher.Resolve(context.Background(), "the   midnight")
	assert.NoError(t, err)
	assert.Equal(t, "The Midnight", canonical)
	assert.Equal(t, 1.0, similarity)
}

func TestResolveFuzzyMatch(t *testing.T) {
	source := &fakeSource{names: []string{"Khruangbin"}}
	matcher := NewMatcher(source, time.Minute, nil)

	// One extra character: distance 1 over length 11.
	canonical, similarity, err := matcher.Resolve(context.Background(), "Khruangbinn")
	assert.NoError(t, err)
	assert.Equal(t, "Khruangbin", canonical)
	assert.InDelta(t, 10.0/11.0, similarity, 0.001)
}

func TestResolveBelowThresholdIsNew(t *testing.T) {
	source := &fakeSource{names: []string{"Khruangbin"}}
	matcher := NewMatcher(source, time.Minute, nil)

	canonical, similarity, err := matcher.Resolve(context.Background(), "Overmono")
	assert.NoError(t, err)
	assert.Equal(t, "Overmono", canonical)
	assert.Equal(t, 0.0, similarity)
}

func TestResolveSkipsCandidatesWithLargeLengthDifference(t *testing.T) {
	// "ab" vs "abcdefghij": length gap 8 exceeds max(3, 20%), so the
	// candidate is never compared and the name is treated as new.
	source := &fakeSource{names: []string{"abcdefghij"}}
	matcher := NewMatcher(source, time.Minute, nil)

	canonical, similarity, err := matcher.Resolve(context.Background(), "ab")
	assert.NoError(t, err)
	assert.Equal(t, "ab", canonical)
	assert.Equal(t, 0.0, similarity)
}

func TestCacheRefreshesOnceWithinTTL(t *testing.T) {
	source := &fakeSource{names: []string{"Caribou"}}
	matcher := NewMatcher(source, time.Minute, nil)

	for i := 0; i < 5; i++ {
		_, _, err := matcher.Resolve(context.Background(), "Caribou")
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, source.calls, "TTL cache should not refresh per lookup")
}

func TestResolveIsDeterministicForNearDuplicates(t *testing.T) {
	source := &fakeSource{names: []string{"Bicep"}}
	matcher := NewMatcher(source, time.Minute, nil)

	// Both spellings sit above the short-circuit threshold against the
	// same cache state, so both converge on the cached canonical name.
	first, sim1, err := matcher.Resolve(context.Background(), "Bicep")
	assert.NoError(t, err)
	second, sim2, err := matcher.Resolve(context.Background(), "bicep")
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, sim1)
	assert.Equal(t, 1.0, sim2)
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"caribou", "caribou", 0},
		{"bicep", "bycep", 1},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, levenshtein(tc.a, tc.b), "levenshtein(%q, %q)", tc.a, tc.b)
	}
}
