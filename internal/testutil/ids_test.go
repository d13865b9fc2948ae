package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceIDGenerator_Sequence(t *testing.T) {
	gen := NewSequenceIDGenerator("plan")

	assert.Equal(t, "plan-0001", gen.Generate())
	assert.Equal(t, "plan-0002", gen.Generate())
	assert.Equal(t, "plan-0003", gen.Generate())
}

func TestSequenceIDGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequenceIDGenerator("")
	assert.Equal(t, "pass-0001", gen.Generate())
}

func TestSequenceIDGenerator_Reset(t *testing.T) {
	gen := NewSequenceIDGenerator("pass")
	gen.Generate()
	gen.Generate()

	gen.Reset()
	assert.Equal(t, "pass-0001", gen.Generate())
}

func TestSequenceIDGenerator_Deterministic(t *testing.T) {
	a := NewSequenceIDGenerator("pass")
	b := NewSequenceIDGenerator("pass")
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestSequenceIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceIDGenerator("pass")
	const goroutines = 20
	const calls = 50

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines*calls)
	assert.True(t, seen["pass-1000"])
}
