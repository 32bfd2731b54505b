package ops

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/errors"
	"github.com/hpungsan/grabtext/internal/ocr"
	"github.com/hpungsan/grabtext/internal/screen"
)

// ServiceOptions configures a capture Service.
type ServiceOptions struct {
	ArtifactsDir string
	SettleDelay  time.Duration // wait before reading pixels so the overlay is gone
}

// CaptureOutput contains the result of the Capture operation.
type CaptureOutput struct {
	capture.Result
	Backend string `json:"backend"`
	// Warning is set when recognition failed; the entry is still stored
	// with empty text.
	Warning string `json:"warning,omitempty"`
}

// Appender is the part of the result store a Service writes to.
// *Store satisfies it.
type Appender interface {
	Append(ctx context.Context, r *capture.Result) error
}

// Service turns a screen box into a stored capture result.
type Service struct {
	store      Appender
	grabber    screen.Grabber
	recognizer ocr.Recognizer
	opts       ServiceOptions
	log        *zap.Logger

	busy atomic.Bool

	mu        sync.Mutex
	nextSub   int
	observers []subscription

	now func() time.Time
}

type subscription struct {
	id int
	o  Observer
}

// NewService creates a capture Service.
func NewService(store Appender, grabber screen.Grabber, recognizer ocr.Recognizer, opts ServiceOptions, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		grabber:    grabber,
		recognizer: recognizer,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

// Subscribe registers o to receive every new result. Observers are
// notified in registration order. The returned func removes o.
func (s *Service) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.observers = append(s.observers, subscription{id: id, o: o})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Busy reports whether a capture is in flight.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

// Capture grabs the pixels under box, saves them as an artifact, runs text
// recognition and appends the result to the store.
//
// Pixel or artifact failures are fatal (CAPTURE_FAILED, nothing stored).
// If the store rejects the entry the artifact is removed again.
// Recognition failures are not: the entry is stored with empty text and
// the reason is returned in Warning. Only one capture may run at a time; a
// concurrent call gets BUSY.
func (s *Service) Capture(ctx context.Context, box capture.Box) (*CaptureOutput, error) {
	box = box.Normalize()
	if box.Empty() {
		return nil, errors.NewInvalidRequest("capture region must have positive width and height")
	}

	if !s.busy.CompareAndSwap(false, true) {
		return nil, errors.NewBusy()
	}
	defer s.busy.Store(false)

	if s.opts.SettleDelay > 0 {
		timer := time.NewTimer(s.opts.SettleDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.NewCaptureFailed("settle", ctx.Err())
		}
	}

	img, err := s.grabber.Grab(box)
	if err != nil {
		return nil, errors.NewCaptureFailed("grab", err)
	}

	takenAt := s.now()
	path, err := writeArtifact(s.opts.ArtifactsDir, takenAt, img)
	if err != nil {
		return nil, errors.NewCaptureFailed("write", err)
	}

	out := &CaptureOutput{Backend: s.recognizer.Name()}

	text, err := s.recognizer.ExtractText(ctx, path)
	if err != nil {
		ge := errors.As(err)
		s.log.Warn("text recognition failed; storing capture without text",
			zap.String("backend", out.Backend),
			zap.String("code", string(ge.Code)),
			zap.Error(err))
		out.Warning = ge.Message
		text = ""
	}

	r := &capture.Result{
		CreatedAt:     takenAt.Unix(),
		ImagePath:     path,
		ExtractedText: text,
	}
	if err := s.store.Append(ctx, r); err != nil {
		// The artifact and its entry exist together or not at all.
		if rmErr := os.Remove(path); rmErr != nil {
			s.log.Error("failed to remove unrecorded artifact", zap.String("artifact", path), zap.Error(rmErr))
		}
		s.log.Error("failed to record capture", zap.String("artifact", path), zap.Error(err))
		return nil, err
	}
	out.Result = *r

	s.log.Info("capture stored",
		zap.Int64("id", r.ID),
		zap.Stringer("box", box),
		zap.String("artifact", path),
		zap.Int("text_chars", len(text)))

	s.publish(*r)
	return out, nil
}

func (s *Service) publish(r capture.Result) {
	s.mu.Lock()
	subs := make([]subscription, len(s.observers))
	copy(subs, s.observers)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.o.Receive(r)
	}
}
