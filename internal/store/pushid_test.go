package store

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushIDShape(t *testing.T) {
	g := NewPushIDGenerator()
	id := g.Next()
	require.Len(t, id, 20)
	for _, c := range id {
		assert.Contains(t, pushChars, string(c))
	}
}

func TestPushIDsSortByCreationTime(t *testing.T) {
	g := NewPushIDGenerator()
	base := time.Now()
	tick := 0
	g.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = g.Next()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestPushIDsSameMillisecondStayIncreasing(t *testing.T) {
	g := NewPushIDGenerator()
	frozen := time.Now()
	g.now = func() time.Time { return frozen }

	prev := g.Next()
	for i := 0; i < 100; i++ {
		next := g.Next()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestPushIDsUnique(t *testing.T) {
	g := NewPushIDGenerator()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := g.Next()
		_, dup := seen[id]
		require.False(t, dup, id)
		seen[id] = struct{}{}
	}
}
