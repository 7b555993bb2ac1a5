package clock

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLamport_Tick(t *testing.T) {
	c := New()
	assert.Equal(t, int64(0), c.Value())
	assert.Equal(t, int64(1), c.Tick())
	assert.Equal(t, int64(2), c.Tick())
	assert.Equal(t, int64(2), c.Value())
}

func TestLamport_Observe(t *testing.T) {
	tests := []struct {
		name  string
		local int
		recv  int64
		want  int64
	}{
		{name: "remote ahead", local: 2, recv: 10, want: 11},
		{name: "remote behind", local: 5, recv: 1, want: 6},
		{name: "equal", local: 4, recv: 4, want: 5},
		{name: "missing remote clock", local: 0, recv: 0, want: 1},
		{name: "negative remote clock", local: 3, recv: -7, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			for i := 0; i < tt.local; i++ {
				c.Tick()
			}
			assert.Equal(t, tt.want, c.Observe(tt.recv))
			assert.Equal(t, tt.want, c.Value())
		})
	}
}

func TestLamport_MatchesReferenceSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := New()
	var model int64

	for i := 0; i < 1000; i++ {
		prev := c.Value()
		if rng.Intn(2) == 0 {
			model++
			assert.Equal(t, model, c.Tick())
		} else {
			recv := rng.Int63n(2000) - 100
			model = max(model, recv) + 1
			assert.Equal(t, model, c.Observe(recv))
		}
		assert.Greater(t, c.Value(), prev)
	}
}

func TestLamport_ConcurrentUpdatesAreNotLost(t *testing.T) {
	c := New()
	const workers, perWorker = 8, 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if w%2 == 0 {
					c.Tick()
				} else {
					c.Observe(0)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(workers*perWorker), c.Value())
}
