package ops

import (
	"context"
	stderrors "errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/db"
	"github.com/hpungsan/grabtext/internal/errors"
	"github.com/hpungsan/grabtext/internal/ocr"
)

var box100 = capture.Box{X1: 10, Y1: 20, X2: 110, Y2: 120}

func countRows(t *testing.T, svc *Service) int {
	t.Helper()
	n, err := svc.store.(*Store).Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}

func TestCapture_WorkingBackend(t *testing.T) {
	rec := &fakeRecognizer{text: "hello world"}
	svc, database, _ := newTestService(t, &fakeGrabber{}, rec)

	var seen []capture.Result
	svc.Subscribe(ObserverFunc(func(r capture.Result) { seen = append(seen, r) }))

	out, err := svc.Capture(context.Background(), box100)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if countRows(t, svc) != 1 {
		t.Fatalf("store has %d rows, want 1", countRows(t, svc))
	}
	if out.ExtractedText == "" {
		t.Error("ExtractedText is empty")
	}
	if out.Warning != "" {
		t.Errorf("Warning = %q, want empty", out.Warning)
	}
	if out.Backend != "fake" {
		t.Errorf("Backend = %q", out.Backend)
	}
	if _, err := os.Stat(out.ImagePath); err != nil {
		t.Errorf("artifact missing: %v", err)
	}

	stored, err := db.GetByID(context.Background(), database, out.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.ExtractedText != "hello world" || stored.ImagePath != out.ImagePath {
		t.Errorf("stored = %+v", stored)
	}

	if len(seen) != 1 || seen[0].ID != out.ID {
		t.Errorf("observer saw %+v, want entry %d before return", seen, out.ID)
	}
}

func TestCapture_ArtifactMatchesRegion(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeGrabber{}, &fakeRecognizer{text: "x"})

	out, err := svc.Capture(context.Background(), capture.Box{X1: 50, Y1: 50, X2: 0, Y2: 10})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	f, err := OpenArtifact(out.ImagePath)
	if err != nil {
		t.Fatalf("OpenArtifact failed: %v", err)
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 40 {
		t.Errorf("artifact is %dx%d, want 50x40", cfg.Width, cfg.Height)
	}
}

func TestCapture_FailingBackend(t *testing.T) {
	rec := &fakeRecognizer{err: errors.NewRecognitionFailed("fake", errBoom)}
	svc, _, _ := newTestService(t, &fakeGrabber{}, rec)

	var seen int
	svc.Subscribe(ObserverFunc(func(capture.Result) { seen++ }))

	out, err := svc.Capture(context.Background(), box100)
	if err != nil {
		t.Fatalf("Capture should not fail on recognition error: %v", err)
	}

	if countRows(t, svc) != 1 {
		t.Fatalf("store has %d rows, want 1", countRows(t, svc))
	}
	if out.ExtractedText != "" {
		t.Errorf("ExtractedText = %q, want empty", out.ExtractedText)
	}
	if out.Warning == "" {
		t.Error("Warning should describe the recognition failure")
	}
	if _, err := os.Stat(out.ImagePath); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
	if seen != 1 {
		t.Errorf("observers notified %d times, want 1", seen)
	}
}

func TestCapture_MissingAPIKeyStillStores(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeGrabber{}, ocr.NewGemini("", "gemini-2.0-flash"))

	out, err := svc.Capture(context.Background(), box100)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if out.ExtractedText != "" {
		t.Errorf("ExtractedText = %q, want empty", out.ExtractedText)
	}
	if out.Warning == "" {
		t.Error("expected a warning about the missing key")
	}
	if countRows(t, svc) != 1 {
		t.Errorf("store has %d rows, want 1", countRows(t, svc))
	}
}

func TestCapture_GrabFailure(t *testing.T) {
	rec := &fakeRecognizer{text: "unused"}
	svc, _, dir := newTestService(t, &fakeGrabber{err: errBoom}, rec)

	_, err := svc.Capture(context.Background(), box100)
	if !errors.Is(err, errors.ErrCaptureFailed) {
		t.Fatalf("err = %v, want CAPTURE_FAILED", err)
	}
	if countRows(t, svc) != 0 {
		t.Error("no entry should be stored")
	}
	if len(rec.paths) != 0 {
		t.Error("recognizer should not be called")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("artifacts dir has %d files, want 0", len(entries))
	}
}

func TestCapture_WriteFailure(t *testing.T) {
	database := openTestDB(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecognizer{text: "unused"}
	svc := NewService(NewStore(database), &fakeGrabber{}, rec, ServiceOptions{ArtifactsDir: blocker}, zap.NewNop())

	var seen int
	svc.Subscribe(ObserverFunc(func(capture.Result) { seen++ }))

	_, err := svc.Capture(context.Background(), box100)
	if !errors.Is(err, errors.ErrCaptureFailed) {
		t.Fatalf("err = %v, want CAPTURE_FAILED", err)
	}
	if ge := errors.As(err); ge.Details["stage"] != "write" {
		t.Errorf("stage = %v, want write", ge.Details["stage"])
	}
	if countRows(t, svc) != 0 {
		t.Error("no entry should be stored")
	}
	if seen != 0 {
		t.Error("observers should not be notified")
	}
}

func TestCapture_EmptyBox(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeGrabber{}, &fakeRecognizer{})

	for _, b := range []capture.Box{
		{X1: 5, Y1: 5, X2: 5, Y2: 5},
		{X1: 0, Y1: 0, X2: 100, Y2: 0},
	} {
		_, err := svc.Capture(context.Background(), b)
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("Capture(%s) err = %v, want INVALID_REQUEST", b, err)
		}
	}
	if countRows(t, svc) != 0 {
		t.Error("no entry should be stored")
	}
}

func TestCapture_Busy(t *testing.T) {
	g := &fakeGrabber{entered: make(chan struct{}), release: make(chan struct{})}
	svc, _, _ := newTestService(t, g, &fakeRecognizer{text: "x"})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Capture(context.Background(), box100)
		done <- err
	}()

	<-g.entered
	if !svc.Busy() {
		t.Error("Busy() = false during capture")
	}

	_, err := svc.Capture(context.Background(), box100)
	if !errors.Is(err, errors.ErrBusy) {
		t.Errorf("concurrent Capture err = %v, want BUSY", err)
	}

	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("first Capture failed: %v", err)
	}
	if svc.Busy() {
		t.Error("Busy() = true after capture finished")
	}
	if countRows(t, svc) != 1 {
		t.Errorf("store has %d rows, want 1", countRows(t, svc))
	}
}

func TestCapture_SameSecond(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeGrabber{}, &fakeRecognizer{text: "x"})
	fixed := time.Unix(1712345678, 0)
	svc.now = func() time.Time { return fixed }

	a, err := svc.Capture(context.Background(), box100)
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Capture(context.Background(), box100)
	if err != nil {
		t.Fatal(err)
	}

	if a.ImagePath == b.ImagePath {
		t.Error("second capture reused the first artifact path")
	}
	if a.CreatedAt != fixed.Unix() || b.CreatedAt != fixed.Unix() {
		t.Errorf("CreatedAt = %d/%d, want %d", a.CreatedAt, b.CreatedAt, fixed.Unix())
	}
	if b.ID <= a.ID {
		t.Errorf("IDs not increasing: %d then %d", a.ID, b.ID)
	}
}

func TestCapture_SettleCancelled(t *testing.T) {
	database := openTestDB(t)
	g := &fakeGrabber{}
	svc := NewService(NewStore(database), g, &fakeRecognizer{}, ServiceOptions{
		ArtifactsDir: t.TempDir(),
		SettleDelay:  time.Hour,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Capture(ctx, box100)
	if !errors.Is(err, errors.ErrCaptureFailed) {
		t.Fatalf("err = %v, want CAPTURE_FAILED", err)
	}
	if svc.Busy() {
		t.Error("Busy() should be released after failure")
	}
}

func TestSubscribe_OrderAndUnsubscribe(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeGrabber{}, &fakeRecognizer{text: "x"})

	var order []string
	svc.Subscribe(ObserverFunc(func(capture.Result) { order = append(order, "a") }))
	unsubB := svc.Subscribe(ObserverFunc(func(capture.Result) { order = append(order, "b") }))
	svc.Subscribe(ObserverFunc(func(capture.Result) { order = append(order, "c") }))

	if _, err := svc.Capture(context.Background(), box100); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ""); got != "abc" {
		t.Errorf("order = %q, want abc", got)
	}

	order = nil
	unsubB()
	unsubB() // second call is a no-op

	if _, err := svc.Capture(context.Background(), box100); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ""); got != "ac" {
		t.Errorf("order = %q, want ac", got)
	}
}

// failingStore rejects every append.
type failingStore struct{}

func (failingStore) Append(context.Context, *capture.Result) error {
	return errors.NewStore(stderrors.New("disk full"))
}

func TestCapture_StoreFailureRemovesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	svc := NewService(failingStore{}, &fakeGrabber{}, &fakeRecognizer{text: "lost"}, ServiceOptions{ArtifactsDir: dir}, zap.NewNop())

	var seen int
	svc.Subscribe(ObserverFunc(func(capture.Result) { seen++ }))

	_, err := svc.Capture(context.Background(), box100)
	if !errors.Is(err, errors.ErrStore) {
		t.Fatalf("err = %v, want STORE_ERROR", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("artifacts dir has %d files, want 0", len(entries))
	}
	if seen != 0 {
		t.Error("observers should not be notified")
	}
	if svc.Busy() {
		t.Error("Busy() should be released after failure")
	}
}

func TestCapture_AppendsThroughStore(t *testing.T) {
	svc, database, _ := newTestService(t, &fakeGrabber{}, &fakeRecognizer{text: "stored"})

	out, err := svc.Capture(context.Background(), box100)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	got, err := NewStore(database).Get(context.Background(), out.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ExtractedText != "stored" || got.ImagePath != out.ImagePath {
		t.Errorf("stored %+v, want text=stored path=%s", got, out.ImagePath)
	}
}
