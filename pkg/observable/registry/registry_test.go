package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New[string, int]()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Keys())
}

func TestRegisterAndGet(t *testing.T) {
	r := New[string, int]()

	r.Register("one", 1)
	r.Register("two", 2)

	v, ok := r.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("three")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestRegisterOverwriteKeepsPosition(t *testing.T) {
	r := New[string, string]()

	r.Register("a", "old")
	r.Register("b", "b")
	r.Register("a", "new")

	v, _ := r.Get("a")
	assert.Equal(t, "new", v)
	assert.Equal(t, []string{"a", "b"}, r.Keys())
	assert.Equal(t, []string{"new", "b"}, r.Values())
}

func TestInsertionOrder(t *testing.T) {
	r := New[string, int]()
	for i, k := range []string{"zeta", "alpha", "mid", "beta"} {
		r.Register(k, i)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid", "beta"}, r.Keys())

	r.Delete("alpha")
	assert.Equal(t, []string{"zeta", "mid", "beta"}, r.Keys())

	r.Register("alpha", 9)
	assert.Equal(t, []string{"zeta", "mid", "beta", "alpha"}, r.Keys())
}

func TestDelete(t *testing.T) {
	r := New[string, int]()
	r.Register("one", 1)

	r.Delete("one")
	assert.False(t, r.Has("one"))
	assert.Equal(t, 0, r.Len())

	// Missing key is a no-op
	r.Delete("missing")
	assert.Equal(t, 0, r.Len())
}

func TestRangeOrderAndEarlyStop(t *testing.T) {
	r := New[string, int]()
	r.Register("one", 1)
	r.Register("two", 2)
	r.Register("three", 3)

	var visited []string
	r.Range(func(k string, v int) bool {
		visited = append(visited, k)
		return true
	})
	assert.Equal(t, []string{"one", "two", "three"}, visited)

	count := 0
	r.Range(func(k string, v int) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestRangeAllowsMutation(t *testing.T) {
	r := New[string, int]()
	r.Register("one", 1)
	r.Register("two", 2)

	var visited []string
	r.Range(func(k string, v int) bool {
		visited = append(visited, k)
		r.Delete(k)
		r.Register("new-"+k, v*10)
		return true
	})

	assert.Equal(t, []string{"one", "two"}, visited)
	assert.Equal(t, []string{"new-one", "new-two"}, r.Keys())
}

func TestGetOrCreate(t *testing.T) {
	r := New[string, int]()

	callCount := 0
	factory := func() int {
		callCount++
		return 42
	}

	v, created := r.GetOrCreate("key", factory)
	assert.Equal(t, 42, v)
	assert.True(t, created)

	v, created = r.GetOrCreate("key", factory)
	assert.Equal(t, 42, v)
	assert.False(t, created)
	assert.Equal(t, 1, callCount)
}

func TestPointerKeys(t *testing.T) {
	type source struct{ name string }
	a, b := &source{"a"}, &source{"a"}

	r := New[*source, string]()
	r.Register(a, "first")
	r.Register(b, "second")

	// Identity, not value equality
	assert.Equal(t, 2, r.Len())
	v, ok := r.Get(a)
	require.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestConcurrentGetOrCreate(t *testing.T) {
	r := New[string, *int]()

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]*int, goroutines)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.GetOrCreate("shared", func() *int {
				v := i
				return &v
			})
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Same(t, results[0], p)
	}
	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.Keys(), 1)
}
