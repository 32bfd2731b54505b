package desktop

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	fynedesktop "fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.design/x/hotkey"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/db"
	"github.com/hpungsan/grabtext/internal/errors"
	"github.com/hpungsan/grabtext/internal/history"
	"github.com/hpungsan/grabtext/internal/ops"
)

// queue is a Scheduler whose calls the test runs explicitly, standing in
// for the UI goroutine.
type queue chan func()

func (q queue) Schedule(fn func()) { q <- fn }

func pump(t *testing.T, q queue, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case fn := <-q:
			fn()
		case <-time.After(5 * time.Second):
			t.Fatalf("scheduled call %d of %d never arrived", i+1, n)
		}
	}
}

type whiteGrabber struct{}

func (whiteGrabber) Grab(box capture.Box) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, box.Width(), box.Height()))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img, nil
}

type stubRecognizer struct{ text string }

func (stubRecognizer) Name() string { return "stub" }

func (r stubRecognizer) ExtractText(context.Context, string) (string, error) {
	return r.text, nil
}

func mouse(x, y float32, button fynedesktop.MouseButton) *fynedesktop.MouseEvent {
	return &fynedesktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     button,
	}
}

func drag(x, y float32) *fyne.DragEvent {
	return &fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}}
}

// --- hotkey ---

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in       string
		wantMods []string
		wantKey  string
	}{
		{"ctrl+m", []string{"ctrl"}, "m"},
		{"Ctrl+Shift+F9", []string{"ctrl", "shift"}, "f9"},
		{"control+cmd+1", []string{"ctrl", "super"}, "1"},
		{"ctrl+ctrl+a", []string{"ctrl"}, "a"},
		{" alt + space ", []string{"alt"}, "space"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseCombo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMods, c.Mods)
			assert.Equal(t, tt.wantKey, c.Key)
		})
	}
}

func TestParseCombo_Errors(t *testing.T) {
	for _, in := range []string{"", "m", "hyper+m", "ctrl+enter", "ctrl+"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseCombo(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfig))
			assert.Equal(t, config.KeyHotkey, errors.As(err).Details["setting"])
		})
	}
}

func TestCombo_String(t *testing.T) {
	c, err := ParseCombo("CTRL+shift+F9")
	require.NoError(t, err)
	assert.Equal(t, "ctrl+shift+f9", c.String())
}

func TestForward_SchedulesOneActivationPerPress(t *testing.T) {
	events := make(chan hotkey.Event)
	activations := 0
	sched := SchedulerFunc(func(fn func()) { fn() })

	done := make(chan struct{})
	go func() {
		forward(context.Background(), events, sched, func() { activations++ })
		close(done)
	}()

	events <- hotkey.Event{}
	events <- hotkey.Event{}
	close(events)
	<-done

	assert.Equal(t, 2, activations)
}

func TestForward_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		forward(ctx, make(chan hotkey.Event), SchedulerFunc(func(fn func()) { fn() }), func() {})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forward did not return after cancel")
	}
}

// --- overlay window ---

type overlayRecorder struct {
	boxes   []capture.Box
	cancels int
}

func newTestOverlay(t *testing.T, origin capture.Point) (*overlayWindow, *overlayRecorder) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	rec := &overlayRecorder{}
	o := newOverlayWindow(a, image.NewRGBA(image.Rect(0, 0, 200, 100)), origin,
		func(b capture.Box) { rec.boxes = append(rec.boxes, b) },
		func() { rec.cancels++ },
	)
	o.Show()
	return o, rec
}

func TestOverlay_DragSelects(t *testing.T) {
	o, rec := newTestOverlay(t, capture.Point{X: 100, Y: 0})

	o.surface.MouseDown(mouse(60, 40, fynedesktop.MouseButtonPrimary))
	o.surface.Dragged(drag(30, 35))
	assert.True(t, o.rect.Visible())
	o.surface.Dragged(drag(10, 10))
	o.surface.MouseUp(mouse(10, 10, fynedesktop.MouseButtonPrimary))
	o.surface.DragEnd()

	require.Len(t, rec.boxes, 1)
	assert.Equal(t, capture.Box{X1: 110, Y1: 10, X2: 160, Y2: 40}, rec.boxes[0])
	assert.True(t, o.closed)
	assert.Zero(t, rec.cancels)
}

func TestOverlay_ZeroAreaStaysOpen(t *testing.T) {
	o, rec := newTestOverlay(t, capture.Point{})

	o.surface.MouseDown(mouse(20, 20, fynedesktop.MouseButtonPrimary))
	o.surface.MouseUp(mouse(20, 80, fynedesktop.MouseButtonPrimary))

	assert.Empty(t, rec.boxes)
	assert.False(t, o.closed)
	assert.False(t, o.rect.Visible())

	// A second attempt still works.
	o.surface.MouseDown(mouse(20, 20, fynedesktop.MouseButtonPrimary))
	o.surface.MouseUp(mouse(40, 30, fynedesktop.MouseButtonPrimary))
	require.Len(t, rec.boxes, 1)
	assert.Equal(t, capture.Box{X1: 20, Y1: 20, X2: 40, Y2: 30}, rec.boxes[0])
}

func TestOverlay_EscapeCancels(t *testing.T) {
	o, rec := newTestOverlay(t, capture.Point{})

	o.surface.MouseDown(mouse(5, 5, fynedesktop.MouseButtonPrimary))
	o.surface.Dragged(drag(50, 50))
	o.win.Canvas().OnTypedKey()(&fyne.KeyEvent{Name: fyne.KeyEscape})

	assert.Equal(t, 1, rec.cancels)
	assert.Empty(t, rec.boxes)
	assert.True(t, o.closed)
}

func TestOverlay_SecondaryClickCancels(t *testing.T) {
	o, rec := newTestOverlay(t, capture.Point{})

	o.surface.MouseDown(mouse(5, 5, fynedesktop.MouseButtonSecondary))

	assert.Equal(t, 1, rec.cancels)
	assert.True(t, o.closed)
}

// --- app flow ---

func newTestApp(t *testing.T, text string) (*App, queue, *ops.Service) {
	t.Helper()
	dir := t.TempDir()
	database, err := db.Init(dir)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig(dir)
	cfg.SettleDelay = 0

	svc := ops.NewService(ops.NewStore(database), whiteGrabber{}, stubRecognizer{text: text},
		ops.ServiceOptions{ArtifactsDir: filepath.Join(dir, "artifacts")}, zap.NewNop())
	ctrl := history.New(ops.NewStore(database), history.Options{PageSize: 10}, zap.NewNop())
	t.Cleanup(svc.Subscribe(ctrl))

	a := test.NewApp()
	t.Cleanup(a.Quit)

	q := make(queue, 16)
	app := New(a, Deps{
		Config:    cfg,
		Service:   svc,
		History:   ctrl,
		Grabber:   whiteGrabber{},
		Scheduler: q,
		Bounds:    func() image.Rectangle { return image.Rect(0, 0, 200, 100) },
	})
	return app, q, svc
}

func TestApp_CaptureFlow(t *testing.T) {
	app, q, _ := newTestApp(t, "hello world")

	app.Activate()
	assert.True(t, app.activating)
	pump(t, q, 1) // overlay shown
	require.NotNil(t, app.overlay)

	s := app.overlay.surface
	s.MouseDown(mouse(10, 10, fynedesktop.MouseButtonPrimary))
	s.Dragged(drag(60, 40))
	s.MouseUp(mouse(60, 40, fynedesktop.MouseButtonPrimary))
	assert.Nil(t, app.overlay)

	pump(t, q, 2) // history refresh, then capture done

	assert.False(t, app.activating)
	require.Len(t, app.history.st.Rows, 1)
	assert.Equal(t, "hello world", app.history.st.Rows[0].ExtractedText)
	assert.Equal(t, "Page 1 of 1 (1 total)", app.history.pageLabel.Text)
}

func TestApp_ActivateIgnoredWhileOpen(t *testing.T) {
	app, q, _ := newTestApp(t, "")

	app.Activate()
	app.Activate()
	pump(t, q, 1)

	select {
	case <-q:
		t.Fatal("second activation should not schedule another overlay")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestApp_CancelRestoresMainWindow(t *testing.T) {
	app, q, _ := newTestApp(t, "")

	app.Activate()
	pump(t, q, 1)
	app.overlay.win.Canvas().OnTypedKey()(&fyne.KeyEvent{Name: fyne.KeyEscape})

	assert.False(t, app.activating)
	assert.Nil(t, app.overlay)

	// A new activation builds a new overlay.
	app.Activate()
	pump(t, q, 1)
	assert.NotNil(t, app.overlay)
}

// --- history table helpers ---

func TestCellText(t *testing.T) {
	r := capture.Result{
		ID:            42,
		CreatedAt:     time.Date(2024, 4, 5, 19, 34, 38, 0, time.Local).Unix(),
		ImagePath:     "/home/u/.grabtext/artifacts/screenshot_1712345678.png",
		ExtractedText: "first line\n  second\tline",
	}
	assert.Equal(t, "42", cellText(r, history.ColumnID))
	assert.Equal(t, "2024-04-05 19:34:38", cellText(r, history.ColumnCreatedAt))
	assert.Equal(t, r.ImagePath, cellText(r, history.ColumnImage))
	assert.Equal(t, "first line second line", cellText(r, history.ColumnText))
	assert.Equal(t, "(no text)", cellText(capture.Result{}, history.ColumnText))
}

func TestHeaderText(t *testing.T) {
	assert.Equal(t, "ID", headerText(history.ColumnID, "", history.Asc))
	assert.Equal(t, "ID ▲", headerText(history.ColumnID, history.ColumnID, history.Asc))
	assert.Equal(t, "Extracted Text ▼", headerText(history.ColumnText, history.ColumnText, history.Desc))
	assert.Equal(t, "Created At", headerText(history.ColumnCreatedAt, history.ColumnText, history.Desc))
}

func TestPageText(t *testing.T) {
	assert.Equal(t, "Page 1 of 1 (0 total)", pageText(ops.Pagination{}))
	assert.Equal(t, "Page 2 of 3 (25 total)", pageText(ops.Paginate(1, 10, 25)))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "••••", maskKey("abc"))
	assert.Equal(t, "••••••••wxyz", maskKey("abcdefwxyz"))
}
