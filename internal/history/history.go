// Package history is the paginated, sortable view over stored captures.
//
// A Controller holds one page of rows at a time. Paging goes to the store;
// sorting only reorders the rows already loaded. Both the desktop table and
// the web pages drive the same Controller type.
package history

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/db"
	"github.com/hpungsan/grabtext/internal/errors"
	"github.com/hpungsan/grabtext/internal/ops"
	"github.com/hpungsan/grabtext/internal/viewer"
)

// Source is the part of the result store the controller pages through.
type Source interface {
	List(ctx context.Context, offset, limit int, order db.Order) ([]capture.Result, error)
	Count(ctx context.Context) (int, error)
}

// Column identifies a sortable column.
type Column string

const (
	ColumnID        Column = "id"
	ColumnCreatedAt Column = "created_at"
	ColumnImage     Column = "image"
	ColumnText      Column = "text"
)

// Columns lists the table columns in display order.
var Columns = []Column{ColumnID, ColumnCreatedAt, ColumnImage, ColumnText}

// Title returns the column header label.
func (c Column) Title() string {
	switch c {
	case ColumnID:
		return "ID"
	case ColumnCreatedAt:
		return "Created At"
	case ColumnImage:
		return "Stored At"
	case ColumnText:
		return "Extracted Text"
	default:
		return string(c)
	}
}

// ParseColumn maps a column name to a Column.
func ParseColumn(s string) (Column, bool) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Columns, c) {
		return c, true
	}
	return "", false
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps "desc" to Desc and anything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// State is a snapshot of the view: the loaded rows and how to navigate.
type State struct {
	Rows       []capture.Result
	Pagination ops.Pagination
	Order      db.Order

	// SortKey is empty when the rows are in store order.
	SortKey Column
	SortDir Direction
}

// Options configures a Controller.
type Options struct {
	PageSize int
	Order    db.Order
}

// Controller is the history view's state and transitions. Safe for
// concurrent use.
type Controller struct {
	src Source
	log *zap.Logger

	mu       sync.Mutex
	rows     []capture.Result
	page     ops.Pagination
	order    db.Order
	sortKey  Column
	sortDir  Direction
	onChange func(State)
}

// New creates a Controller. Nothing is loaded until LoadPage or Reload.
func New(src Source, opts Options, log *zap.Logger) *Controller {
	order := opts.Order
	if order == "" {
		order = db.OrderNewest
	}
	return &Controller{
		src:   src,
		log:   log,
		order: order,
		page:  ops.Pagination{Size: ops.NormalizePageSize(opts.PageSize)},
	}
}

// OnChange sets a callback run after every state change, outside the lock.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// State returns a snapshot. Rows is a copy.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	return State{
		Rows:       slices.Clone(c.rows),
		Pagination: c.page,
		Order:      c.order,
		SortKey:    c.sortKey,
		SortDir:    c.sortDir,
	}
}

// LoadPage fetches page index of the given size, replacing the visible
// rows. index is clamped to [0, totalPages-1], or 0 for an empty store. A
// size outside ops.PageSizes falls back to the default. An active sort is
// reapplied to the new rows.
func (c *Controller) LoadPage(ctx context.Context, index, size int) error {
	c.mu.Lock()
	err := c.loadLocked(ctx, index, size)
	st, fn := c.snapshot(), c.onChange
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if fn != nil {
		fn(st)
	}
	return nil
}

func (c *Controller) loadLocked(ctx context.Context, index, size int) error {
	size = ops.NormalizePageSize(size)

	total, err := c.src.Count(ctx)
	if err != nil {
		return err
	}
	page := ops.Paginate(index, size, total)

	rows, err := c.src.List(ctx, page.Offset, size, c.order)
	if err != nil {
		return err
	}

	c.rows = rows
	c.page = page
	if c.sortKey != "" {
		sortRows(c.rows, c.sortKey, c.sortDir)
	}
	return nil
}

// Reload refetches the current page.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	index, size := c.page.Page, c.page.Size
	c.mu.Unlock()
	return c.LoadPage(ctx, index, size)
}

// NextPage loads the following page if there is one.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	index, size := c.page.Page+1, c.page.Size
	c.mu.Unlock()
	return c.LoadPage(ctx, index, size)
}

// PrevPage loads the preceding page if there is one.
func (c *Controller) PrevPage(ctx context.Context) error {
	c.mu.Lock()
	index, size := c.page.Page-1, c.page.Size
	c.mu.Unlock()
	return c.LoadPage(ctx, index, size)
}

// ChangePageSize switches the page size and goes back to page 0.
func (c *Controller) ChangePageSize(ctx context.Context, size int) error {
	return c.LoadPage(ctx, 0, size)
}

// SetOrder changes the store ordering and goes back to page 0.
func (c *Controller) SetOrder(ctx context.Context, order db.Order) error {
	c.mu.Lock()
	c.order = order
	size := c.page.Size
	c.mu.Unlock()
	return c.LoadPage(ctx, 0, size)
}

// Sort reorders the loaded rows by column. Equal keys keep their relative
// order, and sorting twice with the same arguments changes nothing.
func (c *Controller) Sort(col Column, dir Direction) {
	c.mu.Lock()
	c.sortKey, c.sortDir = col, dir
	sortRows(c.rows, col, dir)
	st, fn := c.snapshot(), c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

// ToggleSort sorts by col, flipping the direction if col is already the
// sort key and starting ascending otherwise. It returns the direction used.
func (c *Controller) ToggleSort(col Column) Direction {
	c.mu.Lock()
	dir := Asc
	if c.sortKey == col {
		dir = c.sortDir.Flip()
	}
	c.mu.Unlock()

	c.Sort(col, dir)
	return dir
}

// Row returns the loaded row with the given id.
func (c *Controller) Row(id int64) (capture.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rows {
		if r.ID == id {
			return r, true
		}
	}
	return capture.Result{}, false
}

// OpenDetail opens the viewer for a loaded row. The store is not queried;
// an id that is not on the current page is NOT_FOUND.
func (c *Controller) OpenDetail(id int64) (*viewer.Detail, error) {
	r, ok := c.Row(id)
	if !ok {
		return nil, errors.NewNotFound(capture.FormatID(id))
	}
	return viewer.Open(r.ImagePath, r.ExtractedText)
}

// Receive reloads the current page when a new capture is stored.
func (c *Controller) Receive(r capture.Result) {
	if err := c.Reload(context.Background()); err != nil {
		c.log.Warn("history reload after capture failed", zap.Int64("id", r.ID), zap.Error(err))
	}
}

func sortRows(rows []capture.Result, col Column, dir Direction) {
	cmpFn := compareBy(col)
	if dir == Desc {
		slices.SortStableFunc(rows, func(a, b capture.Result) int { return cmpFn(b, a) })
		return
	}
	slices.SortStableFunc(rows, cmpFn)
}

func compareBy(col Column) func(a, b capture.Result) int {
	switch col {
	case ColumnCreatedAt:
		return func(a, b capture.Result) int { return cmp.Compare(a.CreatedAt, b.CreatedAt) }
	case ColumnImage:
		return func(a, b capture.Result) int { return strings.Compare(a.ImagePath, b.ImagePath) }
	case ColumnText:
		return func(a, b capture.Result) int { return strings.Compare(a.ExtractedText, b.ExtractedText) }
	default:
		return func(a, b capture.Result) int { return cmp.Compare(a.ID, b.ID) }
	}
}
