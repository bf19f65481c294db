package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/1prspctv/memory-match-madness/internal/errors"
)

func TestParseState(t *testing.T) {
	state, err := ParseState(" Visible ")
	require.NoError(t, err)
	assert.Equal(t, Visible, state)

	state, err = ParseState("hidden")
	require.NoError(t, err)
	assert.Equal(t, Hidden, state)

	_, err = ParseState("minimized")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
}

func TestBroadcaster_NotifiesOnTransition(t *testing.T) {
	b := NewBroadcaster()
	assert.Equal(t, Visible, b.State())

	var got []State
	unsubscribe := b.Subscribe(func(s State) { got = append(got, s) })
	defer unsubscribe()

	b.Publish(Visible) // no change
	b.Publish(Hidden)
	b.Publish(Hidden) // no change
	b.Publish(Visible)

	assert.Equal(t, []State{Hidden, Visible}, got)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster()

	calls := 0
	unsubscribe := b.Subscribe(func(State) { calls++ })
	assert.Equal(t, 1, b.Listeners())

	unsubscribe()
	unsubscribe()
	assert.Zero(t, b.Listeners())

	b.Publish(Hidden)
	b.Publish(Visible)
	assert.Zero(t, calls)
}

func TestBroadcaster_ListenerMaySubscribe(t *testing.T) {
	b := NewBroadcaster()

	nested := 0
	b.Subscribe(func(State) {
		b.Subscribe(func(State) { nested++ })
	})

	b.Publish(Hidden)
	b.Publish(Visible)
	assert.Equal(t, 1, nested)
}
