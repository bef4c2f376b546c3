package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testItem struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	assert.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PushDrain(t *testing.T) {
	q := New[testItem]()

	q.Push(testItem{ID: 1, Name: "first"})
	q.Push(testItem{ID: 2}, testItem{ID: 3})
	assert.Equal(t, 3, q.Len())

	items := q.Drain()
	assert.Equal(t, []testItem{{ID: 1, Name: "first"}, {ID: 2}, {ID: 3}}, items)
	assert.True(t, q.Empty())

	q.Push(testItem{ID: 4})
	assert.Equal(t, []testItem{{ID: 4}}, q.Drain())
	assert.Equal(t, []testItem{{ID: 1, Name: "first"}, {ID: 2}, {ID: 3}}, items, "drained slice is not reused")
}

func TestQueue_Requeue(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	failed := q.Drain()
	q.Push(3)

	q.Requeue(failed)
	assert.Equal(t, []int{1, 2, 3}, q.Drain())

	q.Requeue(nil)
	assert.True(t, q.Empty())
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[int](3)

	q.Push(1, 2, 3, 4, 5)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, uint64(2), q.Dropped())
	assert.Equal(t, []int{3, 4, 5}, q.Drain())

	q.Push(6, 7)
	q.Requeue([]int{8, 9})
	assert.Equal(t, uint64(3), q.Dropped())
	assert.Equal(t, []int{9, 6, 7}, q.Drain())
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				q.Push(n*100 + j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
	assert.Equal(t, uint64(0), q.Dropped())
}
