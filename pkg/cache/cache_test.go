package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTimed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewTimedWithClock(5*time.Minute, clock)

	c.Set("key", []byte("value"))

	clock.Advance(time.Minute)
	if got, ok := c.Get("key"); !ok || string(got) != "value" {
		t.Errorf("failed to get key that should not be expired")
	}

	clock.Advance(10 * time.Minute)
	if _, ok := c.Get("key"); ok {
		t.Errorf("succeeded in getting expired key")
	}
	if c.Len() != 0 {
		t.Errorf("expired key was not evicted")
	}

	if _, ok := c.Get("key"); ok {
		t.Errorf("succeeded in getting key that was previously evicted")
	}
}

func TestTimedConcurrent(t *testing.T) {
	c := NewTimed(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			c.Set(key, []byte(key))
			c.Get(key)
		}(i)
	}
	wg.Wait()
	if c.Len() != 16 {
		t.Errorf("Len() = %d, wanted 16", c.Len())
	}
}
