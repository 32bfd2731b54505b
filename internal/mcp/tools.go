package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("capture_list",
	mcp.WithDescription("List stored captures one page at a time. Returns id, created_at, image_path and extracted_text for each row plus pagination info."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("page",
		mcp.Description("Zero-based page index. Out-of-range values are clamped."),
		mcp.Min(0),
	),
	mcp.WithNumber("size",
		mcp.Description("Rows per page: 5, 10, 20 or 50. Other values fall back to the default."),
	),
	mcp.WithString("order",
		mcp.Description("Storage order of pages."),
		mcp.Enum("newest", "oldest"),
	),
)

var fetchToolDef = mcp.NewTool("capture_fetch",
	mcp.WithDescription("Fetch one capture by id, including whether its screenshot file still exists."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("id",
		mcp.Required(),
		mcp.Description("Capture id."),
		mcp.Min(1),
	),
	mcp.WithBoolean("include_text",
		mcp.Description("Include extracted_text in the response (default true)."),
	),
)

var countToolDef = mcp.NewTool("capture_count",
	mcp.WithDescription("Return the number of stored captures."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var regionToolDef = mcp.NewTool("capture_region",
	mcp.WithDescription("Screenshot a rectangle of the screen in global pixel coordinates, extract its text and store the result. Corners may be given in any order."),
	mcp.WithNumber("x0", mcp.Required(), mcp.Description("First corner x.")),
	mcp.WithNumber("y0", mcp.Required(), mcp.Description("First corner y.")),
	mcp.WithNumber("x1", mcp.Required(), mcp.Description("Opposite corner x.")),
	mcp.WithNumber("y1", mcp.Required(), mcp.Description("Opposite corner y.")),
)
