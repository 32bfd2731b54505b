package desktop

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	fynedesktop "fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/overlay"
)

var (
	scrimColor     = color.NRGBA{A: 77} // black at 0.3
	selectionColor = color.NRGBA{R: 255, A: 255}
)

const selectionStroke = 2

// overlayWindow is the full-screen region picker. One is built per hotkey
// activation and closed when the user selects or cancels.
type overlayWindow struct {
	win      fyne.Window
	sel      *overlay.Selector
	rect     *canvas.Rectangle
	surface  *dragSurface
	origin   capture.Point
	closed   bool
	onSelect func(capture.Box)
	onCancel func()
}

// newOverlayWindow builds the overlay over a frozen backdrop. origin is the
// pixel position of the covered display on the virtual desktop. The window
// is closed before onSelect or onCancel runs.
func newOverlayWindow(a fyne.App, backdrop image.Image, origin capture.Point, onSelect func(capture.Box), onCancel func()) *overlayWindow {
	var win fyne.Window
	if drv, ok := a.Driver().(fynedesktop.Driver); ok {
		win = drv.CreateSplashWindow()
	} else {
		win = a.NewWindow("grabtext")
	}

	o := &overlayWindow{
		win:      win,
		origin:   origin,
		onSelect: onSelect,
		onCancel: onCancel,
	}
	o.sel = overlay.NewSelector(o.selected, o.cancelled)

	o.rect = canvas.NewRectangle(color.Transparent)
	o.rect.StrokeColor = selectionColor
	o.rect.StrokeWidth = selectionStroke
	o.rect.Hide()
	o.surface = newDragSurface(o)

	layers := []fyne.CanvasObject{}
	if backdrop != nil {
		bg := canvas.NewImageFromImage(backdrop)
		bg.FillMode = canvas.ImageFillStretch
		bg.ScaleMode = canvas.ImageScalePixels
		layers = append(layers, bg)
	}
	layers = append(layers,
		canvas.NewRectangle(scrimColor),
		container.NewWithoutLayout(o.rect),
		o.surface,
	)
	win.SetContent(container.NewStack(layers...))

	win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			o.sel.Cancel()
		}
	})
	win.SetCloseIntercept(func() { o.sel.Cancel() })
	return o
}

// Show puts the overlay above everything else.
func (o *overlayWindow) Show() {
	o.win.SetPadded(false)
	o.win.SetFullScreen(true)
	o.win.Show()
	o.win.RequestFocus()
}

func (o *overlayWindow) toPixels(pos fyne.Position) capture.Point {
	return overlay.ToPixels(pos.X, pos.Y, o.win.Canvas().Scale(), o.origin)
}

// redraw positions the live rectangle. box is in screen pixels and is
// converted back to canvas units.
func (o *overlayWindow) redraw(box capture.Box) {
	scale := o.win.Canvas().Scale()
	if scale <= 0 {
		scale = 1
	}
	o.rect.Move(fyne.NewPos(float32(box.X1-o.origin.X)/scale, float32(box.Y1-o.origin.Y)/scale))
	o.rect.Resize(fyne.NewSize(float32(box.Width())/scale, float32(box.Height())/scale))
	o.rect.Show()
	o.rect.Refresh()
}

func (o *overlayWindow) close() {
	if o.closed {
		return
	}
	o.closed = true
	o.win.SetCloseIntercept(nil)
	o.win.Close()
}

func (o *overlayWindow) selected(box capture.Box) {
	o.close()
	if o.onSelect != nil {
		o.onSelect(box)
	}
}

func (o *overlayWindow) cancelled() {
	o.close()
	if o.onCancel != nil {
		o.onCancel()
	}
}

// dragSurface receives pointer events for the overlay.
type dragSurface struct {
	widget.BaseWidget
	o    *overlayWindow
	last fyne.Position
}

var (
	_ fynedesktop.Mouseable  = (*dragSurface)(nil)
	_ fynedesktop.Hoverable  = (*dragSurface)(nil)
	_ fynedesktop.Cursorable = (*dragSurface)(nil)
	_ fyne.Draggable         = (*dragSurface)(nil)
)

func newDragSurface(o *overlayWindow) *dragSurface {
	d := &dragSurface{o: o}
	d.ExtendBaseWidget(d)
	return d
}

func (d *dragSurface) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

func (d *dragSurface) Cursor() fynedesktop.Cursor {
	return fynedesktop.CrosshairCursor
}

func (d *dragSurface) MouseDown(ev *fynedesktop.MouseEvent) {
	if ev.Button == fynedesktop.MouseButtonSecondary {
		d.o.sel.Cancel()
		return
	}
	d.last = ev.Position
	d.o.sel.Press(d.o.toPixels(ev.Position))
}

func (d *dragSurface) MouseUp(ev *fynedesktop.MouseEvent) {
	if ev.Button == fynedesktop.MouseButtonSecondary {
		return
	}
	d.release(ev.Position)
}

func (d *dragSurface) Dragged(ev *fyne.DragEvent) {
	d.move(ev.Position)
}

// DragEnd fires alongside MouseUp on some drivers; Release is a no-op once
// the selector has left Dragging.
func (d *dragSurface) DragEnd() {
	d.release(d.last)
}

func (d *dragSurface) MouseIn(*fynedesktop.MouseEvent) {}

func (d *dragSurface) MouseMoved(ev *fynedesktop.MouseEvent) {
	d.move(ev.Position)
}

func (d *dragSurface) MouseOut() {}

func (d *dragSurface) move(pos fyne.Position) {
	d.last = pos
	if box, ok := d.o.sel.Move(d.o.toPixels(pos)); ok {
		d.o.redraw(box)
	}
}

func (d *dragSurface) release(pos fyne.Position) {
	if d.o.sel.State() != overlay.Dragging {
		return
	}
	if _, ok := d.o.sel.Release(d.o.toPixels(pos)); !ok && !d.o.closed {
		// Zero-area drag: stay open for another try.
		d.o.rect.Hide()
	}
}
