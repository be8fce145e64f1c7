package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T, capacity int) *Priority {
	t.Helper()
	q, err := NewPriority(capacity)
	require.NoError(t, err)
	return q
}

func TestPushIsIdempotent(t *testing.T) {
	t.Parallel()
	q := newQueue(t, 10)

	assert.True(t, q.Push("a"))
	assert.False(t, q.Push("a"))
	assert.False(t, q.Push(""))
	assert.Equal(t, 1, q.Len())
}

func TestPopFollowsArrivalOrder(t *testing.T) {
	t.Parallel()
	q := newQueue(t, 10)

	q.Push("a")
	q.Push("b")
	q.Push("a")
	q.Push("c")

	var got []string
	for {
		id, ok := q.PopIfAny()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRemove(t *testing.T) {
	t.Parallel()
	q := newQueue(t, 10)

	q.Push("a")
	q.Push("b")
	q.Remove("a")
	q.Remove("missing")

	id, ok := q.PopIfAny()
	require.True(t, ok)
	assert.Equal(t, "b", id)

	_, ok = q.PopIfAny()
	assert.False(t, ok)
}

func TestCapacityEvictsOldest(t *testing.T) {
	t.Parallel()
	q := newQueue(t, 2)

	q.Push("a")
	q.Push("b")
	q.Push("c")

	assert.Equal(t, 2, q.Len())
	id, _ := q.PopIfAny()
	assert.Equal(t, "b", id)
}

func TestDefaultCapacity(t *testing.T) {
	t.Parallel()
	q := newQueue(t, 0)
	assert.Equal(t, DefaultCapacity, q.Capacity())
}

func TestConcurrentPush(t *testing.T) {
	t.Parallel()
	q := newQueue(t, 1000)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(fmt.Sprintf("id-%d", i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, q.Len())
}
