package desktop

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/db"
	"github.com/hpungsan/grabtext/internal/history"
	"github.com/hpungsan/grabtext/internal/ops"
	"github.com/hpungsan/grabtext/internal/viewer"
)

var columnWidths = map[history.Column]float32{
	history.ColumnID:        60,
	history.ColumnCreatedAt: 170,
	history.ColumnImage:     230,
	history.ColumnText:      420,
}

const (
	orderNewestLabel = "Newest first"
	orderOldestLabel = "Oldest first"
)

// historyView is the History tab: a paged table of captures with header
// sorting. All methods run on the UI goroutine.
type historyView struct {
	app  fyne.App
	win  fyne.Window
	ctrl *history.Controller
	log  *zap.Logger

	st history.State

	table       *widget.Table
	pageLabel   *widget.Label
	prev, next  *widget.Button
	sizeSelect  *widget.Select
	orderSelect *widget.Select
}

func newHistoryView(a fyne.App, win fyne.Window, ctrl *history.Controller, log *zap.Logger) *historyView {
	v := &historyView{app: a, win: win, ctrl: ctrl, log: log, st: ctrl.State()}

	v.table = widget.NewTableWithHeaders(
		func() (int, int) { return len(v.st.Rows), len(history.Columns) },
		func() fyne.CanvasObject {
			l := widget.NewLabel("")
			l.Truncation = fyne.TextTruncateEllipsis
			return l
		},
		func(id widget.TableCellID, o fyne.CanvasObject) {
			if id.Row < 0 || id.Row >= len(v.st.Rows) {
				return
			}
			o.(*widget.Label).SetText(cellText(v.st.Rows[id.Row], history.Columns[id.Col]))
		},
	)
	v.table.ShowHeaderColumn = false
	v.table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewButton("", nil)
	}
	v.table.UpdateHeader = func(id widget.TableCellID, o fyne.CanvasObject) {
		if id.Col < 0 || id.Col >= len(history.Columns) {
			return
		}
		col := history.Columns[id.Col]
		b := o.(*widget.Button)
		b.SetText(headerText(col, v.st.SortKey, v.st.SortDir))
		b.OnTapped = func() { v.ctrl.ToggleSort(col) }
	}
	for i, col := range history.Columns {
		v.table.SetColumnWidth(i, columnWidths[col])
	}
	v.table.OnSelected = func(id widget.TableCellID) {
		v.table.UnselectAll()
		if id.Row >= 0 && id.Row < len(v.st.Rows) {
			v.openDetail(v.st.Rows[id.Row].ID)
		}
	}

	v.pageLabel = widget.NewLabel("")
	v.prev = widget.NewButton("Previous", func() { v.run(v.ctrl.PrevPage) })
	v.next = widget.NewButton("Next", func() { v.run(v.ctrl.NextPage) })

	sizes := make([]string, len(ops.PageSizes))
	for i, s := range ops.PageSizes {
		sizes[i] = strconv.Itoa(s)
	}
	v.sizeSelect = widget.NewSelect(sizes, func(s string) {
		size, _ := strconv.Atoi(s)
		if size == v.st.Pagination.Size {
			return
		}
		v.run(func(ctx context.Context) error { return v.ctrl.ChangePageSize(ctx, size) })
	})
	v.orderSelect = widget.NewSelect([]string{orderNewestLabel, orderOldestLabel}, func(s string) {
		order := db.OrderNewest
		if s == orderOldestLabel {
			order = db.OrderOldest
		}
		if order == v.st.Order {
			return
		}
		v.run(func(ctx context.Context) error { return v.ctrl.SetOrder(ctx, order) })
	})

	v.refresh(v.st)
	return v
}

// Content returns the tab body.
func (v *historyView) Content() fyne.CanvasObject {
	controls := container.NewHBox(
		widget.NewLabel("Per page"), v.sizeSelect,
		widget.NewLabel("Order"), v.orderSelect,
	)
	pager := container.NewHBox(v.prev, v.pageLabel, v.next)
	return container.NewBorder(controls, pager, nil, nil, v.table)
}

// refresh redraws from a controller snapshot.
func (v *historyView) refresh(st history.State) {
	v.st = st
	v.pageLabel.SetText(pageText(st.Pagination))
	setEnabled(v.prev, st.Pagination.HasPrev)
	setEnabled(v.next, st.Pagination.HasNext)

	// Assign directly: SetSelected would fire OnChanged and reload.
	v.sizeSelect.Selected = strconv.Itoa(st.Pagination.Size)
	v.sizeSelect.Refresh()
	v.orderSelect.Selected = orderNewestLabel
	if st.Order == db.OrderOldest {
		v.orderSelect.Selected = orderOldestLabel
	}
	v.orderSelect.Refresh()

	v.table.Refresh()
}

func (v *historyView) run(fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		v.log.Warn("history load failed", zap.Error(err))
		dialog.ShowError(err, v.win)
	}
}

func (v *historyView) openDetail(id int64) {
	d, err := v.ctrl.OpenDetail(id)
	if err != nil {
		dialog.ShowError(err, v.win)
		return
	}
	showDetailWindow(v.app, id, d)
}

// showDetailWindow opens a window with the scaled image above the full text.
func showDetailWindow(a fyne.App, id int64, d *viewer.Detail) {
	w := a.NewWindow("Capture #" + capture.FormatID(id))

	img := canvas.NewImageFromImage(d.Image)
	img.FillMode = canvas.ImageFillOriginal
	b := d.Image.Bounds()
	img.SetMinSize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())))

	text := widget.NewMultiLineEntry()
	text.SetText(d.Text)
	text.Wrapping = fyne.TextWrapWord
	text.SetMinRowsVisible(8)

	copyBtn := widget.NewButton("Copy text", func() {
		w.Clipboard().SetContent(d.Text)
	})
	caption := widget.NewLabel(fmt.Sprintf("%s · %dx%d", filepath.Base(d.Path), d.Original.X, d.Original.Y))

	w.SetContent(container.NewBorder(
		container.NewVBox(container.NewCenter(img), caption),
		container.NewHBox(copyBtn),
		nil, nil,
		text,
	))
	w.Resize(fyne.NewSize(viewer.MaxWidth+80, viewer.MaxHeight+320))
	w.Show()
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

// cellText renders one table cell.
func cellText(r capture.Result, col history.Column) string {
	switch col {
	case history.ColumnID:
		return capture.FormatID(r.ID)
	case history.ColumnCreatedAt:
		return r.Time().Format(time.DateTime)
	case history.ColumnImage:
		return r.ImagePath
	case history.ColumnText:
		if r.ExtractedText == "" {
			return "(no text)"
		}
		return strings.Join(strings.Fields(r.ExtractedText), " ")
	}
	return ""
}

// headerText returns a column title with an arrow on the active sort key.
func headerText(col, key history.Column, dir history.Direction) string {
	if col != key {
		return col.Title()
	}
	if dir == history.Desc {
		return col.Title() + " ▼"
	}
	return col.Title() + " ▲"
}

func pageText(p ops.Pagination) string {
	pages := max(p.TotalPages, 1)
	return fmt.Sprintf("Page %d of %d (%d total)", p.Page+1, pages, p.Total)
}
