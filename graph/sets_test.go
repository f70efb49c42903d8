package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tweag/nixtract/types"
)

func TestOutputPathSet_TryAdd_FirstWinsSecondLoses(t *testing.T) {
	s := newOutputPathSet()

	assert.True(t, s.TryAdd("/nix/store/a"))
	assert.False(t, s.TryAdd("/nix/store/a"))
	assert.True(t, s.TryAdd("/nix/store/b"))
	assert.Equal(t, 2, s.Len())
}

func TestOutputPathSet_Contains(t *testing.T) {
	s := newOutputPathSet()
	assert.False(t, s.Contains("/nix/store/a"))
	s.TryAdd("/nix/store/a")
	assert.True(t, s.Contains("/nix/store/a"))
}

// TestOutputPathSet_ConcurrentTryAdd exercises the check-then-add race:
// exactly one of N concurrent TryAdd calls for the same path must win.
func TestOutputPathSet_ConcurrentTryAdd(t *testing.T) {
	s := newOutputPathSet()
	const n = 100

	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			if s.TryAdd(types.OutputPath("/nix/store/contested")) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, 1, s.Len())
}
