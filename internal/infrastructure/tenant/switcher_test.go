package tenant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(ids ...string) StaticResolver {
	r := StaticResolver{}
	for _, id := range ids {
		r[id] = &Context{TenantID: id, Config: &Config{TenantID: id}, Status: "active"}
	}
	return r
}

func TestSwitcherRunRestoresOnSuccess(t *testing.T) {
	s := NewSwitcher(newTestResolver("a", "b"), "a")

	var seen string
	err := s.Run("b", func(ctx *Context) error {
		seen = ctx.TenantID
		assert.Equal(t, "b", s.Current())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "b", seen)
	assert.Equal(t, "a", s.Current())
	assert.Equal(t, 0, s.Depth())
}

func TestSwitcherRunRestoresOnError(t *testing.T) {
	s := NewSwitcher(newTestResolver("a", "b"), "a")
	boom := errors.New("boom")

	err := s.Run("b", func(*Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "a", s.Current())
}

func TestSwitcherRunRestoresOnPanic(t *testing.T) {
	s := NewSwitcher(newTestResolver("a", "b"), "a")

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = s.Run("b", func(*Context) error { panic("kaboom") })
	})
	assert.Equal(t, "a", s.Current())
	assert.Equal(t, 0, s.Depth())
}

func TestSwitcherNestingRestoresImmediatePrior(t *testing.T) {
	s := NewSwitcher(newTestResolver("a", "b", "c"), "a")

	var trail []string
	err := s.Run("b", func(*Context) error {
		trail = append(trail, s.Current())
		err := s.Run("c", func(*Context) error {
			trail = append(trail, s.Current())
			return errors.New("inner failure")
		})
		trail = append(trail, s.Current())
		assert.Error(t, err)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "b"}, trail)
	assert.Equal(t, "a", s.Current())
}

func TestSwitcherUnknownTenantDoesNotSwitch(t *testing.T) {
	s := NewSwitcher(newTestResolver("a"), "a")
	called := false

	err := s.Run("missing", func(*Context) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, "a", s.Current())
}

func TestWithinReturnsValue(t *testing.T) {
	s := NewSwitcher(newTestResolver("a", "b"), "a")

	id, err := Within(s, "b", func(ctx *Context) (string, error) {
		return ctx.TenantID + "-ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "b-ok", id)

	_, err = Within(s, "b", func(*Context) (int, error) {
		return 0, errors.New("nope")
	})
	assert.EqualError(t, err, "nope")
	assert.Equal(t, "a", s.Current())
}
