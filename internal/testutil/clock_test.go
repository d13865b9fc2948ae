package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func TestStepClock_StartsAtBase(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, int64(1), clock.Ticks())
}

func TestStepClock_AdvancesByStep(t *testing.T) {
	clock := NewStepClock(epoch, time.Minute)

	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch.Add(time.Minute), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Minute), clock.Now())
}

func TestStepClock_NormalizesToUTC(t *testing.T) {
	local := epoch.In(time.FixedZone("CET", 3600))
	clock := NewStepClock(local, time.Second)
	assert.Equal(t, time.UTC, clock.Now().Location())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, epoch, clock.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)
	const goroutines = 10
	const calls = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				clock.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*calls), clock.Ticks())
}
