package web

import (
	"database/sql"
	"fmt"
	"image/png"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/db"
	"github.com/hpungsan/grabtext/internal/errors"
	"github.com/hpungsan/grabtext/internal/history"
	"github.com/hpungsan/grabtext/internal/ops"
	"github.com/hpungsan/grabtext/internal/viewer"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	store    *ops.Store
	reloader ops.Reloader
	renderer *Renderer
	log      *zap.Logger
}

func newHandlers(deps Deps) (*Handlers, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}
	renderer, err := NewRenderer(templateSub, deps.Version, log)
	if err != nil {
		return nil, err
	}

	return &Handlers{
		db:       deps.DB,
		cfg:      deps.Config,
		store:    ops.NewStore(deps.DB),
		reloader: deps.Reloader,
		renderer: renderer,
		log:      log,
	}, nil
}

// HandleList handles GET /captures: one page of history. Each request
// builds its own view from the query alone, so tabs never share paging or
// sort state.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntParam(r, "page", 0)
	size := parseIntParam(r, "size", h.cfg.PageSize)

	orderParam := q.Get("order")
	if orderParam == "" {
		orderParam = h.cfg.SortOrder
	}

	view := history.New(h.store, history.Options{
		PageSize: size,
		Order:    db.ParseOrder(orderParam),
	}, h.log)
	if err := view.LoadPage(r.Context(), page, size); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if col, ok := history.ParseColumn(q.Get("sort")); ok {
		view.Sort(col, history.ParseDirection(q.Get("dir")))
	}

	st := view.State()
	rows := st.Rows
	if rows == nil {
		rows = []capture.Result{}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, ops.ListOutput{
			Items:      rows,
			Pagination: st.Pagination,
			Sort:       string(st.Order),
		})
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Captures",
			Version: h.renderer.version,
			Nav:     "captures",
		},
		Rows:       rows,
		Pagination: st.Pagination,
		Order:      string(st.Order),
		SortKey:    st.SortKey,
		SortDir:    st.SortDir,
		Columns:    history.Columns,
		PageSizes:  ops.PageSizes,
	})
}

// lookup returns the capture named by the {id} path value.
func (h *Handlers) lookup(r *http.Request) (*ops.FetchOutput, error) {
	id, ok := capture.ParseID(r.PathValue("id"))
	if !ok {
		return nil, errors.NewInvalidRequest("capture ID must be a positive integer")
	}
	row, err := h.store.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return ops.Describe(*row), nil
}

// HandleDetail handles GET /captures/{id}: image beside the full text.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, c)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   "Capture #" + capture.FormatID(c.ID),
			Version: h.renderer.version,
			Nav:     "captures",
		},
		Capture:      c,
		RenderedHTML: renderMarkdown(c.ExtractedText),
	})
}

// HandleThumb handles GET /captures/{id}/thumb: the artifact scaled to the
// detail viewport.
func (h *Handlers) HandleThumb(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	d, err := viewer.Open(c.ImagePath, c.ExtractedText)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if err := png.Encode(w, d.Image); err != nil {
		h.log.Warn("thumbnail encode failed", zap.Int64("id", c.ID), zap.Error(err))
	}
}

// HandleArtifact handles GET /captures/{id}/artifact: the original PNG.
func (h *Handlers) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	f, err := ops.OpenArtifact(c.ImagePath)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	name := baseName(c.ImagePath)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// HandleSettings handles GET /settings.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	data := h.settingsData()
	data.Saved = r.URL.Query().Get("saved") == "1"
	h.renderer.renderPage(w, r, "settings", data)
}

// HandleSaveSettings handles POST /settings: store a new API key.
func (h *Handlers) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if !sameOrigin(r) {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("cross-origin request rejected"))
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	out, err := ops.SaveAPIKey(h.cfg, h.reloader, r.FormValue("api_key"))
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) && !wantsJSON(r) {
			data := h.settingsData()
			data.Error = errors.As(err).Message
			h.renderer.renderPageStatus(w, r, http.StatusBadRequest, "settings", data)
			return
		}
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info("api key saved", zap.String("path", out.Path))

	// JSON request
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/settings?saved=1")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
}

func (h *Handlers) settingsData() SettingsPageData {
	key := h.cfg.APIKey()
	return SettingsPageData{
		PageData: PageData{
			Title:   "Settings",
			Version: h.renderer.version,
			Nav:     "settings",
		},
		HasKey:     key != "",
		MaskedKey:  maskKey(key),
		Backend:    h.cfg.Backend,
		Model:      h.cfg.Model,
		ConfigPath: h.cfg.Path(),
	}
}

// sameOrigin rejects browser form posts from other sites. Requests without
// an Origin header (curl, older browsers) are allowed.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// maskKey shows only the last four characters of a secret.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", 8) + key[len(key)-4:]
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
