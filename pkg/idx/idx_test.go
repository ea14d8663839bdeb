package idx

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_MonotonicWithinSameInstant(t *testing.T) {
	g := NewGenerator()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = g.NewAt(at)
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.True(t, at.Equal(Time(ids[0])))
}

func TestGenerator_ConcurrentUnique(t *testing.T) {
	g := NewGenerator()
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := g.New()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, 16*50)
}

func TestTime_Malformed(t *testing.T) {
	assert.True(t, Time("not-a-ulid").IsZero())
}
