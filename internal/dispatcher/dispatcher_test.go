package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesByExactTopic(t *testing.T) {
	d := New()

	var got []byte
	d.Register("song-played-topic", func(ctx context.Context, message []byte) error {
		got = message
		return nil
	})

	err := d.Dispatch(context.Background(), "song-played-topic", []byte(`{"User_Id":"u"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"User_Id":"u"}`), got)
}

func TestDispatchUnknownTopicDrops(t *testing.T) {
	d := New()

	called := false
	d.Register("song-played-topic", func(ctx context.Context, message []byte) error {
		called = true
		return nil
	})

	err := d.Dispatch(context.Background(), "some-other-topic", []byte(`x`))
	assert.NoError(t, err, "unknown topics are dropped, not failed")
	assert.False(t, called)
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	d := New()

	want := errors.New("handler failed")
	d.Register("song-played-topic", func(ctx context.Context, message []byte) error {
		return want
	})

	err := d.Dispatch(context.Background(), "song-played-topic", nil)
	assert.ErrorIs(t, err, want)
}
