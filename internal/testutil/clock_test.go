package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockFrozen(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now(), "clock must not move on its own")
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	got := c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), got)
	assert.Equal(t, got, c.Now())
}

func TestFakeClockSetNormalizesUTC(t *testing.T) {
	loc := time.FixedZone("TST", 3600)
	c := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	c.Set(time.Date(2024, 6, 1, 13, 0, 0, 0, loc))
	assert.Equal(t, time.UTC, c.Now().Location())
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), c.Now())
}

func TestFakeClockConcurrentAdvance(t *testing.T) {
	c := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
		}()
	}
	wg.Wait()

	want := time.Date(2024, 1, 1, 0, 0, 50, 0, time.UTC)
	assert.Equal(t, want, c.Now())
}
