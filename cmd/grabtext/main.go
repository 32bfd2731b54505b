package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/db"
	"github.com/hpungsan/grabtext/internal/logger"
	"github.com/hpungsan/grabtext/internal/mcp"
	"github.com/hpungsan/grabtext/internal/ocr"
	"github.com/hpungsan/grabtext/internal/ops"
	"github.com/hpungsan/grabtext/internal/screen"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"run": true, "serve": true, "capture": true, "ocr": true,
	"list": true, "show": true, "count": true, "export": true,
	"config": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                  _     _            _
   __ _ _ __ __ _| |__ | |_ _____  _| |_
  / _' | '__/ _' | '_ \| __/ _ \ \/ / __|
 | (_| | | | (_| | |_) | ||  __/>  <| |_
  \__, |_|  \__,_|_.__/ \__\___/_/\_\\__|
  |___/

  Screen region to text

  Usage: grabtext run          start the desktop app
         grabtext <command> [options]
         grabtext --help

  MCP server mode requires piped input.`)
}

// env is what every command shares. Fields left nil are built on first use.
type env struct {
	db  *sql.DB
	cfg *config.Config
	log *zap.Logger

	grabber    screen.Grabber
	recognizer ocr.Recognizer
	reloader   ops.Reloader
}

// recognizerFor returns the recognizer and, when it can be rebuilt after a
// key change, its reloader.
func (e *env) recognizerFor() (ocr.Recognizer, ops.Reloader, error) {
	if e.recognizer != nil {
		return e.recognizer, e.reloader, nil
	}
	r, err := ocr.NewReloadable(e.cfg, e.log)
	if err != nil {
		return nil, nil, err
	}
	e.recognizer, e.reloader = r, r
	return r, r, nil
}

// service builds a capture Service. Only the desktop app waits the settle
// delay; elsewhere nothing is drawn over the region.
func (e *env) service(withSettle bool) (*ops.Service, ops.Reloader, error) {
	rec, reloader, err := e.recognizerFor()
	if err != nil {
		return nil, nil, err
	}
	grabber := e.grabber
	if grabber == nil {
		grabber = screen.NewDisplay()
	}
	opts := ops.ServiceOptions{ArtifactsDir: e.cfg.ArtifactsDir}
	if withSettle {
		opts.SettleDelay = e.cfg.SettleDelay
	}
	return ops.NewService(ops.NewStore(e.db), grabber, rec, opts, e.log), reloader, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log, err := logger.New(os.Getenv(config.EnvPrefix+"_DEBUG") != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".grabtext")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cfg := loadConfig(baseDir, log)

	e := &env{db: database, cfg: cfg, log: log}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(e)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'grabtext --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := runMCP(e); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig never fails: bad settings fall back to their defaults, and an
// unreadable file leaves the whole default config in place.
func loadConfig(baseDir string, log *zap.Logger) *config.Config {
	cfg, err := config.Load(baseDir)
	if err != nil {
		log.Warn("config unreadable; using defaults", zap.Error(err))
		return config.DefaultConfig(baseDir)
	}
	for _, w := range cfg.Warnings() {
		log.Warn("invalid setting replaced by default", zap.Error(w))
	}
	return cfg
}

// runMCP serves the MCP tools over stdio. capture_region is only offered
// when a display is attached.
func runMCP(e *env) error {
	if unknown := mcp.ValidateDisabledTools(e.cfg.DisabledTools); len(unknown) > 0 {
		e.log.Warn("unknown tools in "+config.KeyDisabledTools, zap.Strings("tools", unknown))
	}
	var capturer mcp.Capturer
	if !screen.PrimaryBounds().Empty() {
		svc, _, err := e.service(false)
		if err != nil {
			return err
		}
		capturer = svc
	} else {
		e.log.Info("no display attached; capture_region disabled")
	}
	return mcp.Run(e.db, e.cfg, capturer, Version)
}
