package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/observable/pkg/observable"
	"github.com/randalmurphal/observable/pkg/observable/config"
	"github.com/randalmurphal/observable/pkg/observable/store"
)

func newTestShell(t *testing.T, persister *store.Persister) (*shell, *bytes.Buffer) {
	t.Helper()
	def, err := observable.ParseDefinition(config.New(map[string]any{
		"name":     "user",
		"defaults": map[string]any{"role": "guest"},
		"schema": map[string]any{
			"type":       "object",
			"properties": map[string]any{"age": map[string]any{"type": "integer"}},
		},
	}))
	require.NoError(t, err)
	var out bytes.Buffer
	return newShell(&out, def, observable.Attributes{"id": 1}, persister), &out
}

func execLine(t *testing.T, sh *shell, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	quit, err := sh.exec(context.Background(), line)
	require.NoError(t, err)
	assert.False(t, quit)
	return out.String()
}

func TestShell_Mutations(t *testing.T) {
	sh, out := newTestShell(t, nil)

	assert.Equal(t, "  ~ change:name \"ada lovelace\"\n  ~ change\n", execLine(t, sh, out, "set name ada lovelace"))
	assert.Equal(t, "  ~ change:age 36\n  ~ change\n", execLine(t, sh, out, "set age 36"))
	assert.Equal(t, "\"ada lovelace\"\n", execLine(t, sh, out, "get name"))
	assert.Equal(t, "(absent)\n", execLine(t, sh, out, "get missing"))
	assert.Equal(t, "{\"age\":36}\n", execLine(t, sh, out, "changed"))
	assert.Equal(t, "null\n", execLine(t, sh, out, "prev age"))

	assert.Empty(t, execLine(t, sh, out, "set age 40 --silent"))
	assert.Equal(t, "40\n", execLine(t, sh, out, "get age"))

	got := execLine(t, sh, out, "set age \"old\" --validate")
	assert.Contains(t, got, "  ~ invalid ")
	assert.Contains(t, got, "rejected")

	assert.Equal(t, "  ~ change:age null\n  ~ change\n", execLine(t, sh, out, "unset age"))
	assert.Equal(t, "{\"id\":1,\"name\":\"ada lovelace\",\"role\":\"guest\"}\n", execLine(t, sh, out, "json"))
	assert.Equal(t, "true\n", execLine(t, sh, out, "valid"))

	execLine(t, sh, out, "clear")
	assert.True(t, sh.model.IsEmpty())
}

func TestShell_Commands(t *testing.T) {
	sh, out := newTestShell(t, nil)

	assert.Contains(t, execLine(t, sh, out, "help"), "commands:")
	assert.Empty(t, execLine(t, sh, out, "   "))

	quit, err := sh.exec(context.Background(), "quit")
	require.NoError(t, err)
	assert.True(t, quit)

	for _, line := range []string{"bogus", "set onlykey", "get", "unset", "prev", "save", "fetch", "list"} {
		_, err := sh.exec(context.Background(), line)
		assert.Error(t, err, line)
	}
}

func TestShell_Store(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	defer s.Close()
	p := store.NewPersister(s)

	sh, out := newTestShell(t, p)
	execLine(t, sh, out, "set name ada")
	assert.Equal(t, "saved\n", execLine(t, sh, out, "save"))
	assert.Contains(t, execLine(t, sh, out, "list"), "1 1 (")

	execLine(t, sh, out, "set name grace")
	assert.Contains(t, execLine(t, sh, out, "fetch"), "~ change:name \"ada\"")

	got := execLine(t, sh, out, "destroy --wait")
	assert.Contains(t, got, "~ destroy")
	assert.Contains(t, got, "~ sync")
	assert.Empty(t, execLine(t, sh, out, "list"))
}

func TestSplitFlags(t *testing.T) {
	words, flags := splitFlags([]string{"set", "--silent", "a", "--", "1"})
	assert.Equal(t, []string{"set", "a", "--", "1"}, words)
	assert.Equal(t, map[string]bool{"silent": true}, flags)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, float64(3), parseValue("3"))
	assert.Equal(t, "x", parseValue(`"x"`))
	assert.Equal(t, "bare words", parseValue("bare words"))
	assert.Equal(t, map[string]any{"a": true}, parseValue(`{"a": true}`))
	assert.Nil(t, parseValue("null"))
}
