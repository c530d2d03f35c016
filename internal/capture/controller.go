package capture

import (
	"context"
	"errors"
	"fmt"

	"vcheck-go/internal/imaging"

	"go.uber.org/zap"
)

var (
	// ErrCameraNotReady rejects a shutter trigger before the camera has
	// delivered a real frame. No state transition occurs.
	ErrCameraNotReady = errors.New("camera not ready")

	// ErrInvalidTransition guards operations called outside their state.
	ErrInvalidTransition = errors.New("invalid capture state transition")
)

// Controller owns the capture lifecycle for one session: frame acquisition,
// resize/encode, and the one-or-two-pass flow depending on kit layout.
// The camera source is held only while a capture state is entered.
type Controller struct {
	log      *zap.Logger
	source   FrameSource
	maxEdge  int
	twoSided bool

	state    State
	acquired bool
	front    []byte
	back     []byte
}

// NewController creates a controller for one session and kit layout.
func NewController(log *zap.Logger, source FrameSource, maxEdge int, twoSided bool) *Controller {
	return &Controller{
		log:      log,
		source:   source,
		maxEdge:  maxEdge,
		twoSided: twoSided,
		state:    StateAwaitingFrontCapture,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Images returns the encoded captures accumulated so far. Back is nil for
// single-sided kits.
func (c *Controller) Images() (front, back []byte) {
	return c.front, c.back
}

// Begin enters the front-capture state and acquires the camera feed.
func (c *Controller) Begin(ctx context.Context) error {
	if c.state != StateAwaitingFrontCapture {
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, c.state)
	}
	return c.acquire(ctx)
}

// Shutter rasterizes the current frame, downscales and encodes it. For
// two-sided kits the first capture is held and the controller advances to
// the back-capture state; the final capture moves to interpreting and
// releases the camera.
func (c *Controller) Shutter(ctx context.Context) error {
	if c.state != StateAwaitingFrontCapture && c.state != StateAwaitingBackCapture {
		return fmt.Errorf("%w: shutter from %s", ErrInvalidTransition, c.state)
	}
	if !c.acquired {
		return ErrCameraNotReady
	}

	frame, err := c.source.Frame()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCameraNotReady, err)
	}
	bounds := frame.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ErrCameraNotReady
	}

	encoded, err := imaging.EncodePNG(imaging.Downscale(frame, c.maxEdge))
	if err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}

	if c.state == StateAwaitingFrontCapture {
		c.front = encoded
		if c.twoSided {
			// Hold the front capture and re-enter for the back side.
			c.release()
			if err := c.acquire(ctx); err != nil {
				return err
			}
			c.state = StateAwaitingBackCapture
			c.log.Debug("Front side captured, awaiting back side")
			return nil
		}
	} else {
		c.back = encoded
	}

	c.release()
	c.state = StateInterpreting
	c.log.Debug("Capture complete, interpreting", zap.Bool("two_sided", c.twoSided))
	return nil
}

// Complete marks a successful interpretation.
func (c *Controller) Complete() error {
	if c.state != StateInterpreting {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, c.state)
	}
	c.state = StateDone
	return nil
}

// Fail discards the attempt's captures and re-enters the front-capture
// state. Used for interpretation failures and explicit retakes; the retake
// budget is accounted by the session, not here.
func (c *Controller) Fail(ctx context.Context) error {
	if c.state != StateInterpreting && c.state != StateDone {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, c.state)
	}
	c.front = nil
	c.back = nil
	c.state = StateAwaitingFrontCapture
	return c.acquire(ctx)
}

// Teardown releases the camera regardless of state.
func (c *Controller) Teardown() {
	c.release()
}

func (c *Controller) acquire(ctx context.Context) error {
	if c.acquired {
		// Never re-acquire over a held feed.
		c.release()
	}
	if err := c.source.Acquire(ctx); err != nil {
		return fmt.Errorf("failed to acquire camera feed: %w", err)
	}
	c.acquired = true
	return nil
}

func (c *Controller) release() {
	if c.acquired {
		c.source.Release()
		c.acquired = false
	}
}
