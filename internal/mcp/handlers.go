package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/errors"
	"github.com/hpungsan/grabtext/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	capturer Capturer
}

// NewHandlers creates a new Handlers instance. capturer may be nil.
func NewHandlers(db *sql.DB, cfg *config.Config, capturer Capturer) *Handlers {
	return &Handlers{db: db, cfg: cfg, capturer: capturer}
}

// Request types for each tool

// ListRequest represents the arguments for capture_list.
type ListRequest struct {
	Page  int    `json:"page,omitempty"`
	Size  int    `json:"size,omitempty"`
	Order string `json:"order,omitempty"`
}

// FetchRequest represents the arguments for capture_fetch.
type FetchRequest struct {
	ID          int64 `json:"id"`
	IncludeText *bool `json:"include_text,omitempty"`
}

// RegionRequest represents the arguments for capture_region.
type RegionRequest struct {
	X0 *int `json:"x0"`
	Y0 *int `json:"y0"`
	X1 *int `json:"x1"`
	Y1 *int `json:"y1"`
}

// Handler implementations

// HandleList handles the capture_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	size := input.Size
	if size == 0 {
		size = h.cfg.PageSize
	}
	order := input.Order
	if order == "" {
		order = h.cfg.SortOrder
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Page:  input.Page,
		Size:  size,
		Order: order,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the capture_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, ops.FetchInput{
		ID:          input.ID,
		IncludeText: input.IncludeText,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCount handles the capture_count tool call.
func (h *Handlers) HandleCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Count(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRegion handles the capture_region tool call.
func (h *Handlers) HandleRegion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.capturer == nil {
		return errorResult(errors.NewConfig("capture", "screen capture is not available in this process")), nil
	}

	input, err := decode[RegionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.X0 == nil || input.Y0 == nil || input.X1 == nil || input.Y1 == nil {
		return errorResult(errors.NewInvalidRequest("x0, y0, x1 and y1 are required")), nil
	}

	box := capture.BoxFromPoints(
		capture.Point{X: *input.X0, Y: *input.Y0},
		capture.Point{X: *input.X1, Y: *input.Y1},
	)
	result, err := h.capturer.Capture(ctx, box)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	gErr := errors.As(err)

	errorObj := map[string]any{
		"code":    gErr.Code,
		"message": gErr.Message,
		"status":  gErr.Status,
	}
	if gErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if gErr.Details != nil {
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		errorObj["details"] = gErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
