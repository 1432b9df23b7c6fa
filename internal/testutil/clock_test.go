package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_ZeroStartUsesEpoch(t *testing.T) {
	clock := NewManualClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestManualClock_Advance(t *testing.T) {
	clock := NewManualClock(Epoch)

	assert.Equal(t, Epoch.Add(5*time.Minute), clock.Advance(5*time.Minute))
	assert.Equal(t, Epoch.Add(15*time.Minute), clock.Advance(10*time.Minute))
	assert.Equal(t, 15*time.Minute, clock.Elapsed(Epoch))
}

func TestManualClock_NeverRunsBackwards(t *testing.T) {
	clock := NewManualClock(Epoch)
	clock.Advance(time.Hour)

	assert.Equal(t, Epoch.Add(time.Hour), clock.Advance(-time.Minute))
	assert.Equal(t, Epoch.Add(time.Hour), clock.Set(Epoch))
	assert.Equal(t, Epoch.Add(2*time.Hour), clock.Set(Epoch.Add(2*time.Hour)))
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(Epoch)
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(numGoroutines*time.Second), clock.Now())
}
