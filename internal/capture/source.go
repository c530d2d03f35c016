package capture

import (
	"context"
	"errors"
	"image"
	"sync"
)

// ErrSourceNotAcquired is returned when a frame is requested from a source
// that is not currently held.
var ErrSourceNotAcquired = errors.New("frame source not acquired")

// FrameSource is the exclusive camera resource. It must be acquired before
// frames can be read and released on every transition out of a capture
// state; re-acquiring without releasing is a resource leak.
type FrameSource interface {
	Acquire(ctx context.Context) error
	Frame() (image.Image, error)
	Release()
}

// UploadSource is a FrameSource fed by HTTP uploads: the browser owns the
// physical camera and posts rasterized frames. SetFrame stages the most
// recent upload; Frame hands it to the controller.
type UploadSource struct {
	mu       sync.Mutex
	acquired bool
	frame    image.Image
}

// NewUploadSource creates an upload-fed frame source.
func NewUploadSource() *UploadSource {
	return &UploadSource{}
}

func (s *UploadSource) Acquire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquired {
		return errors.New("frame source already acquired")
	}
	s.acquired = true
	return nil
}

func (s *UploadSource) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return nil, ErrSourceNotAcquired
	}
	if s.frame == nil {
		// No upload staged yet; the controller treats this as not-ready.
		return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil
	}
	return s.frame, nil
}

func (s *UploadSource) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired = false
	s.frame = nil
}

// SetFrame stages an uploaded frame for the next shutter trigger.
func (s *UploadSource) SetFrame(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = img
}
