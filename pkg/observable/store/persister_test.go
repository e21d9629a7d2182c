package store_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/observable/pkg/observable"
	"github.com/randalmurphal/observable/pkg/observable/event"
	"github.com/randalmurphal/observable/pkg/observable/store"
)

// flakyStore fails the first n Delete calls.
type flakyStore struct {
	store.Store
	failures int
	err      error
	deletes  int
}

func (f *flakyStore) Delete(kind, id string) error {
	f.deletes++
	if f.deletes <= f.failures {
		return f.err
	}
	return f.Store.Delete(kind, id)
}

var quick = store.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, BackoffFactor: 1}

var userDef = &observable.Definition{Name: "user"}

func TestPersister_SaveFetch(t *testing.T) {
	ctx := context.Background()
	p := store.NewPersister(store.NewMemoryStore())

	m := observable.New(userDef, observable.Attributes{"id": 7, "name": "ada"})
	require.NoError(t, p.Save(ctx, m))

	data, err := p.Store().Load("user", "7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"name":"ada"}`, string(data))

	fresh := observable.New(userDef, observable.Attributes{"id": 7})
	var changed []string
	fresh.On(event.All, event.Func(func(args ...any) {
		changed = append(changed, args[0].(string))
	}), nil)

	ok, err := p.Fetch(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ada", fresh.Get("name"))
	assert.Equal(t, []string{"change:name", "change"}, changed)
	assert.Equal(t, 7, fresh.ID())

	t.Run("unchanged snapshot fires nothing", func(t *testing.T) {
		m := observable.New(userDef, observable.Attributes{"id": 8, "n": 1, "tags": []string{"x"}})
		require.NoError(t, p.Save(ctx, m))
		var names []string
		m.On(event.All, event.Func(func(args ...any) {
			names = append(names, args[0].(string))
		}), nil)

		ok, err := p.Fetch(ctx, m)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, names)
		assert.Equal(t, 8, m.ID())
		assert.Equal(t, []string{"x"}, m.Get("tags"))

		m.Set("n", 2)
		names = nil
		_, err = p.Fetch(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, []string{"change:n", "change"}, names)
		assert.Equal(t, int64(1), m.Get("n"))
	})

	t.Run("decoded value shapes", func(t *testing.T) {
		require.NoError(t, p.Store().Save("user", "9", []byte(`{"id":9,"ratio":0.5,"list":[1,"a"],"obj":{"k":2}}`)))
		m := observable.New(userDef, observable.Attributes{"id": 9})

		_, err := p.Fetch(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, 9, m.ID())
		assert.Equal(t, 0.5, m.Get("ratio"))
		assert.Equal(t, []any{int64(1), "a"}, m.Get("list"))
		assert.Equal(t, map[string]any{"k": int64(2)}, m.Get("obj"))
	})

	t.Run("new model cannot be saved", func(t *testing.T) {
		err := p.Save(ctx, observable.New(userDef, nil))
		assert.ErrorIs(t, err, store.ErrNoID)
		_, err = p.Fetch(ctx, observable.New(userDef, nil))
		assert.ErrorIs(t, err, store.ErrNoID)
	})

	t.Run("fetch missing", func(t *testing.T) {
		_, err := p.Fetch(ctx, observable.New(userDef, observable.Attributes{"id": 99}))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("fetch respects validation", func(t *testing.T) {
		strict := &observable.Definition{
			Name: "user",
			Validate: func(attrs observable.Attributes, _ *observable.Options) error {
				if attrs["name"] == "ada" {
					return errors.New("no ada")
				}
				return nil
			},
		}
		target := observable.New(strict, observable.Attributes{"id": 7})
		ok, err := p.Fetch(ctx, target, observable.Validate())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, target.Get("name"))
	})
}

func TestPersister_Destroy(t *testing.T) {
	t.Run("removes the snapshot and fires sync", func(t *testing.T) {
		mem := store.NewMemoryStore()
		p := store.NewPersister(mem)
		m := observable.New(userDef, observable.Attributes{"id": "u1"})
		require.NoError(t, p.Save(context.Background(), m))

		var events []string
		var resp any
		m.On(event.All, event.Func(func(args ...any) {
			events = append(events, args[0].(string))
			if args[0] == observable.EventSync {
				resp = args[2]
			}
		}), nil)

		require.NoError(t, m.Destroy(observable.WithPersister(p), observable.Wait()))
		assert.Equal(t, []string{observable.EventDestroy, observable.EventSync}, events)
		assert.Equal(t, store.Info{Kind: "user", ID: "u1"}, resp)
		assert.Zero(t, mem.Len())
	})

	t.Run("retries transient failures", func(t *testing.T) {
		flaky := &flakyStore{Store: store.NewMemoryStore(), failures: 2, err: store.Transient(errors.New("locked"))}
		p := store.NewPersister(flaky, store.WithRetry(quick))
		m := observable.New(userDef, observable.Attributes{"id": 1})

		var synced bool
		m.On(observable.EventSync, event.Func(func(args ...any) { synced = true }), nil)

		require.NoError(t, m.Destroy(observable.WithPersister(p)))
		assert.Equal(t, 3, flaky.deletes)
		assert.True(t, synced)
	})

	t.Run("permanent failure fires error", func(t *testing.T) {
		var buf bytes.Buffer
		denied := errors.New("denied")
		flaky := &flakyStore{Store: store.NewMemoryStore(), failures: 5, err: denied}
		p := store.NewPersister(flaky,
			store.WithRetry(quick),
			store.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		)
		m := observable.New(userDef, observable.Attributes{"id": 1})

		var got error
		m.On(observable.EventError, event.Func(func(args ...any) { got = args[1].(error) }), nil)
		destroyed := false
		m.On(observable.EventDestroy, event.Func(func(args ...any) { destroyed = true }), nil)

		require.NoError(t, m.Destroy(observable.WithPersister(p), observable.Wait()))
		assert.Equal(t, 1, flaky.deletes)
		assert.ErrorIs(t, got, denied)
		var perr *observable.PersistError
		assert.True(t, errors.As(got, &perr))
		assert.False(t, destroyed)
		assert.Contains(t, buf.String(), "snapshot store failed")
		assert.Contains(t, buf.String(), "operation=delete")
	})
}

func TestPersister_SQLite(t *testing.T) {
	s := sqliteFactory(t)
	defer s.Close()
	p := store.NewPersister(s)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		require.NoError(t, p.Save(ctx, observable.New(userDef, observable.Attributes{"id": id, "name": id})))
	}
	infos, err := s.List("user")
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	m := observable.New(userDef, observable.Attributes{"id": "a"})
	require.NoError(t, m.Destroy(observable.WithPersister(p), observable.Wait()))

	infos, err = s.List("user")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "b", infos[0].ID)
}
