package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/errors"
	"github.com/hpungsan/grabtext/internal/ops"
)

// maxKeyBytes bounds what config set-key reads from stdin.
const maxKeyBytes = 4096

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "grabtext",
		Usage:   "Select a screen region and extract its text",
		Version: Version,
		Commands: []*cli.Command{
			runCmd(e),
			serveCmd(e),
			captureCmd(e),
			ocrCmd(e),
			listCmd(e),
			showCmd(e),
			countCmd(e),
			exportCmd(e),
			configCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// runCmd creates the run command.
func runCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the desktop app: global hotkey, capture overlay and history window",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-web", Usage: "Do not start the history web UI"},
		},
		Action: func(c *cli.Context) error {
			if err := runDesktop(c.Context, e, !c.Bool("no-web")); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the history web UI without the desktop app",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Address to bind (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := e.cfg.WebBind, e.cfg.WebPort
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest("port must be between 1 and 65535"))
			}
			if err := serveWeb(c.Context, e, bind, port); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// captureCmd creates the capture command.
func captureCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Capture a screen region given two corners in screen pixels",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "x1", Required: true, Usage: "First corner X"},
			&cli.IntFlag{Name: "y1", Required: true, Usage: "First corner Y"},
			&cli.IntFlag{Name: "x2", Required: true, Usage: "Opposite corner X"},
			&cli.IntFlag{Name: "y2", Required: true, Usage: "Opposite corner Y"},
		},
		Action: func(c *cli.Context) error {
			svc, _, err := e.service(false)
			if err != nil {
				return outputError(err)
			}
			defer attachMirror(c.Context, e, svc)()

			box := capture.BoxFromPoints(
				capture.Point{X: c.Int("x1"), Y: c.Int("y1")},
				capture.Point{X: c.Int("x2"), Y: c.Int("y2")},
			)
			output, err := svc.Capture(c.Context, box)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// ocrOutput is printed by the ocr command.
type ocrOutput struct {
	Path    string `json:"path"`
	Backend string `json:"backend"`
	Text    string `json:"text"`
}

// ocrCmd creates the ocr command.
func ocrCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "ocr",
		Usage:     "Extract text from an existing image file without storing it",
		ArgsUsage: "<image>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one image path is required"))
			}
			path := c.Args().First()
			if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
				return outputError(errors.NewInvalidRequest("not a readable file: " + path))
			}

			rec, _, err := e.recognizerFor()
			if err != nil {
				return outputError(err)
			}
			text, err := rec.ExtractText(c.Context, path)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(ocrOutput{Path: path, Backend: rec.Name(), Text: text})
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List one page of capture history",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Usage: "Zero-based page index"},
			&cli.IntFlag{Name: "size", Aliases: []string{"s"}, Usage: "Page size: 5, 10, 20 or 50 (default from config)"},
			&cli.StringFlag{Name: "order", Aliases: []string{"o"}, Usage: "newest|oldest (default from config)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				Page:  c.Int("page"),
				Size:  e.cfg.PageSize,
				Order: e.cfg.SortOrder,
			}
			if c.IsSet("size") {
				input.Size = c.Int("size")
			}
			if c.IsSet("order") {
				input.Order = c.String("order")
			}
			if input.Page < 0 {
				return outputError(errors.NewInvalidRequest("page must not be negative"))
			}

			output, err := ops.List(c.Context, e.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one capture by ID",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-text", Usage: "Exclude extracted_text from output"},
		},
		Action: func(c *cli.Context) error {
			id, ok := capture.ParseID(c.Args().First())
			if !ok {
				return outputError(errors.NewInvalidRequest("id must be a positive integer"))
			}

			input := ops.FetchInput{ID: id}
			if c.Bool("no-text") {
				includeText := false
				input.IncludeText = &includeText
			}

			output, err := ops.Fetch(c.Context, e.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// countCmd creates the count command.
func countCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Print the number of stored captures",
		Action: func(c *cli.Context) error {
			output, err := ops.Count(c.Context, e.db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the capture history to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output path (default: ~/.grabtext/exports/captures-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, e.db, e.cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// configView is what config show prints. The key itself is never shown.
type configView struct {
	Path          string   `json:"path"`
	Backend       string   `json:"backend"`
	Model         string   `json:"model"`
	APIKeySet     bool     `json:"api_key_set"`
	Hotkey        string   `json:"hotkey"`
	PageSize      int      `json:"page_size"`
	SortOrder     string   `json:"sort_order"`
	ArtifactsDir  string   `json:"artifacts_dir"`
	WebAddr       string   `json:"web_addr"`
	S3Bucket      string   `json:"s3_bucket,omitempty"`
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// configCmd creates the config command and its subcommands.
func configCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or change settings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective settings",
				Action: func(c *cli.Context) error {
					return outputJSON(newConfigView(e.cfg))
				},
			},
			{
				Name:  "path",
				Usage: "Print the settings file path",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(os.Stdout, e.cfg.Path())
					return err
				},
			},
			{
				Name:  "set-key",
				Usage: "Save the backend API key (reads the key from stdin)",
				Action: func(c *cli.Context) error {
					if !stdinHasData() {
						return outputError(errors.NewInvalidRequest("API key must be piped via stdin"))
					}
					key, err := readStdin(maxKeyBytes)
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}

					// Only rebuild a recognizer this process already made.
					output, err := ops.SaveAPIKey(e.cfg, e.reloader, key)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

func newConfigView(cfg *config.Config) configView {
	return configView{
		Path:          cfg.Path(),
		Backend:       cfg.Backend,
		Model:         cfg.Model,
		APIKeySet:     cfg.HasAPIKey(),
		Hotkey:        cfg.Hotkey,
		PageSize:      cfg.PageSize,
		SortOrder:     cfg.SortOrder,
		ArtifactsDir:  cfg.ArtifactsDir,
		WebAddr:       fmt.Sprintf("%s:%d", cfg.WebBind, cfg.WebPort),
		S3Bucket:      cfg.S3.Bucket,
		DisabledTools: cfg.DisabledTools,
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	ge := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", ge.Code, ge.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, up to limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
