// Package desktop is the fyne front end: the hotkey-driven capture overlay,
// the history window and the settings tab.
package desktop

import (
	"context"
	"image"
	"net/url"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fynedesktop "fyne.io/fyne/v2/driver/desktop"
	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/history"
	"github.com/hpungsan/grabtext/internal/ops"
	"github.com/hpungsan/grabtext/internal/screen"
)

// Deps are the collaborators of the desktop app.
type Deps struct {
	Config   *config.Config
	Service  *ops.Service
	History  *history.Controller
	Reloader ops.Reloader
	Grabber  screen.Grabber
	Log      *zap.Logger
	Version  string

	// WebURL, when set, adds an "Open in browser" menu item.
	WebURL string

	// Scheduler defaults to UIThread.
	Scheduler Scheduler

	// Bounds returns the pixel rectangle the overlay covers. Defaults to
	// screen.PrimaryBounds.
	Bounds func() image.Rectangle
}

// App owns the fyne windows. Unless noted, methods run on the UI goroutine.
type App struct {
	fyne  fyne.App
	main  fyne.Window
	deps  Deps
	sched Scheduler
	log   *zap.Logger

	history  *historyView
	settings *settingsView

	// activating is set from the hotkey press until the overlay closes.
	activating bool
	overlay    *overlayWindow
}

// New builds the main window. Nothing is shown until Run.
func New(a fyne.App, deps Deps) *App {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = UIThread
	}
	if deps.Bounds == nil {
		deps.Bounds = screen.PrimaryBounds
	}

	app := &App{
		fyne:  a,
		main:  a.NewWindow("grabtext"),
		deps:  deps,
		sched: deps.Scheduler,
		log:   deps.Log,
	}
	app.history = newHistoryView(a, app.main, deps.History, deps.Log)
	app.settings = newSettingsView(app.main, deps.Config, deps.Reloader, deps.Log)

	deps.History.OnChange(func(st history.State) {
		app.sched.Schedule(func() { app.history.refresh(st) })
	})

	tabs := container.NewAppTabs(
		container.NewTabItem("History", app.history.Content()),
		container.NewTabItem("Settings", app.settings.Content()),
	)
	app.main.SetContent(tabs)
	app.main.Resize(fyne.NewSize(920, 560))
	app.setupMenus()
	return app
}

func (a *App) setupMenus() {
	items := []*fyne.MenuItem{
		fyne.NewMenuItem("Capture Region", a.Activate),
	}
	if a.deps.WebURL != "" {
		items = append(items, fyne.NewMenuItem("Open in Browser", a.openBrowser))
	}
	fileMenu := fyne.NewMenu("File", items...)
	a.main.SetMainMenu(fyne.NewMainMenu(fileMenu))

	// With a tray icon the app keeps running when the window is closed.
	if desk, ok := a.fyne.(fynedesktop.App); ok {
		tray := fyne.NewMenu("grabtext", append([]*fyne.MenuItem{
			fyne.NewMenuItem("Show History", a.main.Show),
		}, items...)...)
		desk.SetSystemTrayMenu(tray)
		a.main.SetCloseIntercept(a.main.Hide)
	}
}

func (a *App) openBrowser() {
	u, err := url.Parse(a.deps.WebURL)
	if err != nil {
		dialog.ShowError(err, a.main)
		return
	}
	if err := a.fyne.OpenURL(u); err != nil {
		dialog.ShowError(err, a.main)
	}
}

// Run loads the first page, registers the hotkey and blocks in the fyne
// event loop until the app quits. Call it from the main goroutine.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := a.deps.Service.Subscribe(a.deps.History)
	defer unsubscribe()

	if err := a.deps.History.Reload(ctx); err != nil {
		a.log.Warn("initial history load failed", zap.Error(err))
	}

	var hotkeyErr error
	combo, err := ParseCombo(a.deps.Config.Hotkey)
	if err == nil {
		var l *Listener
		if l, err = Register(combo, a.log); err == nil {
			go l.Run(ctx, a.sched, a.Activate)
		}
	}
	if err != nil {
		// The app is still usable from the menu.
		a.log.Warn("global hotkey unavailable", zap.Error(err))
		hotkeyErr = err
	}

	a.main.Show()
	if hotkeyErr != nil {
		dialog.ShowError(hotkeyErr, a.main)
	}
	a.fyne.Run()
	return nil
}

// Activate hides the main window and opens a fresh overlay over a frozen
// image of the screen. Presses while an overlay is open or a capture is
// running are ignored.
func (a *App) Activate() {
	if a.activating || a.deps.Service.Busy() {
		return
	}
	a.activating = true
	a.main.Hide()

	settle := a.deps.Config.SettleDelay
	go func() {
		// Let the main window disappear before freezing the screen.
		time.Sleep(settle)
		bounds := a.deps.Bounds()
		backdrop, err := a.deps.Grabber.Grab(capture.Box{
			X1: bounds.Min.X, Y1: bounds.Min.Y,
			X2: bounds.Max.X, Y2: bounds.Max.Y,
		})
		if err != nil {
			a.log.Warn("overlay backdrop unavailable", zap.Error(err))
		}
		origin := capture.Point{X: bounds.Min.X, Y: bounds.Min.Y}
		a.sched.Schedule(func() { a.showOverlay(backdrop, origin) })
	}()
}

func (a *App) showOverlay(backdrop image.Image, origin capture.Point) {
	a.overlay = newOverlayWindow(a.fyne, backdrop, origin, a.onSelected, a.onCancelled)
	a.overlay.Show()
}

func (a *App) onCancelled() {
	a.overlay = nil
	a.activating = false
	a.main.Show()
}

// onSelected runs the capture off the UI goroutine. The overlay window is
// already closed; the service waits the settle delay before reading pixels.
func (a *App) onSelected(box capture.Box) {
	a.overlay = nil
	go func() {
		out, err := a.deps.Service.Capture(context.Background(), box)
		a.sched.Schedule(func() { a.captureDone(out, err) })
	}()
}

func (a *App) captureDone(out *ops.CaptureOutput, err error) {
	a.activating = false
	a.main.Show()
	if err != nil {
		a.log.Warn("capture failed", zap.Error(err))
		dialog.ShowError(err, a.main)
		return
	}
	if out.Warning != "" {
		dialog.ShowInformation("Text not extracted", out.Warning, a.main)
	}
}
