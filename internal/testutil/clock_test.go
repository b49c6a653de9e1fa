package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Steps(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, int64(1700000000), clock.Now().Unix())
	assert.Equal(t, int64(1700000001), clock.Now().Unix())
	assert.Equal(t, int64(1700000002), clock.Now().Unix())
	assert.Equal(t, int64(3), clock.Ticks())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClockAt(time.Unix(100, 0), time.Minute)

	clock.Now()
	clock.Now()
	clock.Reset()

	assert.Equal(t, int64(0), clock.Ticks())
	assert.Equal(t, int64(100), clock.Now().Unix())
	assert.Equal(t, int64(160), clock.Now().Unix())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	clock := NewDeterministicClock()

	var wg sync.WaitGroup
	seen := make(chan int64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now().Unix()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for s := range seen {
		unique[s] = true
	}
	assert.Len(t, unique, 100, "every call must return a distinct instant")
}

func TestScriptedClock(t *testing.T) {
	clock := NewScriptedClock(100, 300, 200)

	assert.Equal(t, int64(100), clock.Now().Unix())
	assert.Equal(t, int64(300), clock.Now().Unix())
	assert.Equal(t, int64(200), clock.Now().Unix())
	assert.Equal(t, int64(200), clock.Now().Unix(), "repeats the last instant")
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("")
	assert.Equal(t, "rec-0001", ids.Generate())
	assert.Equal(t, "rec-0002", ids.Generate())

	custom := NewSequentialIDs("job")
	assert.Equal(t, "job-0001", custom.Generate())
}
