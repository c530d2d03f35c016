package capture

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingSource instruments the acquire/release discipline.
type countingSource struct {
	acquires int
	releases int
	held     bool
	frame    image.Image
}

func (s *countingSource) Acquire(ctx context.Context) error {
	if s.held {
		return ErrSourceNotAcquired // double acquire is a leak
	}
	s.acquires++
	s.held = true
	return nil
}

func (s *countingSource) Frame() (image.Image, error) {
	if !s.held {
		return nil, ErrSourceNotAcquired
	}
	return s.frame, nil
}

func (s *countingSource) Release() {
	s.releases++
	s.held = false
}

func readyFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 640, 480))
}

func TestSingleSidedFlow(t *testing.T) {
	source := &countingSource{frame: readyFrame()}
	c := NewController(zap.NewNop(), source, 512, false)
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx))
	assert.Equal(t, StateAwaitingFrontCapture, c.State())

	require.NoError(t, c.Shutter(ctx))
	assert.Equal(t, StateInterpreting, c.State())

	front, back := c.Images()
	assert.NotEmpty(t, front)
	assert.Nil(t, back, "single-sided kits skip the back capture")
	assert.False(t, source.held, "camera must be released while interpreting")

	require.NoError(t, c.Complete())
	assert.Equal(t, StateDone, c.State())
}

func TestTwoSidedFlow(t *testing.T) {
	source := &countingSource{frame: readyFrame()}
	c := NewController(zap.NewNop(), source, 512, true)
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx))
	require.NoError(t, c.Shutter(ctx))
	assert.Equal(t, StateAwaitingBackCapture, c.State(), "first capture is held, not interpreted")

	front, back := c.Images()
	assert.NotEmpty(t, front)
	assert.Nil(t, back)

	require.NoError(t, c.Shutter(ctx))
	assert.Equal(t, StateInterpreting, c.State())

	front, back = c.Images()
	assert.NotEmpty(t, front)
	assert.NotEmpty(t, back)
}

func TestShutterRejectedBeforeFirstFrame(t *testing.T) {
	// Zero-dimension frame: the feed is live but has not delivered yet.
	source := &countingSource{frame: image.NewRGBA(image.Rect(0, 0, 0, 0))}
	c := NewController(zap.NewNop(), source, 512, false)
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx))
	err := c.Shutter(ctx)
	assert.ErrorIs(t, err, ErrCameraNotReady)
	assert.Equal(t, StateAwaitingFrontCapture, c.State(), "no transition on a not-ready shutter")
	assert.True(t, source.held, "feed stays acquired so the user can retry")
}

func TestFailReentersFrontCapture(t *testing.T) {
	source := &countingSource{frame: readyFrame()}
	c := NewController(zap.NewNop(), source, 512, false)
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx))
	require.NoError(t, c.Shutter(ctx))
	require.NoError(t, c.Fail(ctx))

	assert.Equal(t, StateAwaitingFrontCapture, c.State())
	front, back := c.Images()
	assert.Nil(t, front)
	assert.Nil(t, back)
	assert.True(t, source.held, "re-entry re-acquires the feed")
}

func TestCameraNeverDoubleAcquired(t *testing.T) {
	source := &countingSource{frame: readyFrame()}
	c := NewController(zap.NewNop(), source, 512, true)
	ctx := context.Background()

	require.NoError(t, c.Begin(ctx))
	require.NoError(t, c.Shutter(ctx)) // front → back: release + reacquire
	require.NoError(t, c.Shutter(ctx)) // back → interpreting: release
	require.NoError(t, c.Fail(ctx))    // reacquire
	c.Teardown()

	assert.Equal(t, source.acquires, source.releases,
		"every acquire must be balanced by a release")
	assert.False(t, source.held)
}

func TestInvalidTransitions(t *testing.T) {
	source := &countingSource{frame: readyFrame()}
	c := NewController(zap.NewNop(), source, 512, false)
	ctx := context.Background()

	assert.ErrorIs(t, c.Complete(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Fail(ctx), ErrInvalidTransition)

	require.NoError(t, c.Begin(ctx))
	require.NoError(t, c.Shutter(ctx))
	assert.ErrorIs(t, c.Shutter(ctx), ErrInvalidTransition, "shutter disabled while interpreting")
	assert.ErrorIs(t, c.Begin(ctx), ErrInvalidTransition)
}

func TestUploadSourceLifecycle(t *testing.T) {
	source := NewUploadSource()
	ctx := context.Background()

	_, err := source.Frame()
	assert.ErrorIs(t, err, ErrSourceNotAcquired)

	require.NoError(t, source.Acquire(ctx))
	assert.Error(t, source.Acquire(ctx), "double acquire is a leak")

	frame, err := source.Frame()
	require.NoError(t, err)
	assert.Zero(t, frame.Bounds().Dx(), "no staged upload reads as a not-ready frame")

	source.SetFrame(readyFrame())
	frame, err = source.Frame()
	require.NoError(t, err)
	assert.Equal(t, 640, frame.Bounds().Dx())

	source.Release()
	_, err = source.Frame()
	assert.ErrorIs(t, err, ErrSourceNotAcquired)
}
