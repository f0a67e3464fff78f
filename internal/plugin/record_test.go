package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	t.Run("normalizes domain and dependencies", func(t *testing.T) {
		r, err := NewRecord(Descriptor{
			Domain:       "  Game_Engine ",
			Version:      "1.0.0",
			Name:         "Game Engine",
			Dependencies: []string{"Core", "", "  ", "core", "NET"},
		})
		require.NoError(t, err)

		assert.Equal(t, "game_engine", r.Domain)
		assert.Equal(t, []string{"core", "net"}, r.Dependencies)
		assert.Empty(t, r.Dependents())
		assert.Equal(t, Pending, r.State())
		assert.Equal(t, "game_engine@1.0.0", r.String())
	})

	t.Run("blank domain is rejected", func(t *testing.T) {
		_, err := NewRecord(Descriptor{Domain: "   ", Name: "nameless"})
		assert.ErrorIs(t, err, ErrInvalidDomain)
	})

	t.Run("nil dependencies give an empty list", func(t *testing.T) {
		r, err := NewRecord(Descriptor{Domain: "a"})
		require.NoError(t, err)
		assert.NotNil(t, r.Dependencies)
		assert.Empty(t, r.Dependencies)
		assert.Equal(t, "a", r.String())
	})
}

func TestRecordDependents(t *testing.T) {
	r, err := NewRecord(Descriptor{Domain: "a"})
	require.NoError(t, err)

	r.AddDependent("C")
	r.AddDependent("b")
	r.AddDependent("b")
	r.AddDependent("a") // never lists itself
	r.AddDependent("")

	assert.Equal(t, []string{"b", "c"}, r.Dependents())
	assert.True(t, r.HasDependent("B"))

	r.RemoveDependent("B")
	assert.Equal(t, []string{"c"}, r.Dependents())

	r.ClearDependents()
	assert.Empty(t, r.Dependents())
}

func TestRecordDependsOn(t *testing.T) {
	r, err := NewRecord(Descriptor{Domain: "b", Dependencies: []string{"A"}})
	require.NoError(t, err)

	assert.True(t, r.DependsOn("a"))
	assert.True(t, r.DependsOn(" A "))
	assert.False(t, r.DependsOn("c"))
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Pending:   "pending",
		Waiting:   "waiting",
		Running:   "running",
		Done:      "done",
		Failed:    "failed",
		State(42): "unknown",
	}
	for s, want := range cases {
		assert.Equal(t, want, s.String())
	}
	assert.True(t, Done.Terminal())
	assert.True(t, Failed.Terminal())
	assert.False(t, Waiting.Terminal())
}
