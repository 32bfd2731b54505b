package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	gerrors "github.com/hpungsan/grabtext/internal/errors"
)

// FileName is the key-value settings file inside the base directory.
const FileName = "config.env"

// EnvPrefix namespaces environment overrides, e.g. GRABTEXT_GEMINI_API_KEY.
const EnvPrefix = "GRABTEXT"

// Setting keys as they appear in config.env.
const (
	KeyAPIKey        = "GEMINI_API_KEY"
	KeyModel         = "GEMINI_MODEL"
	KeyBackend       = "OCR_BACKEND"
	KeyTesseractLang = "TESSERACT_LANG"
	KeyHotkey        = "HOTKEY"
	KeyPageSize      = "PAGE_SIZE"
	KeySortOrder     = "SORT_ORDER"
	KeySettleDelayMS = "SETTLE_DELAY_MS"
	KeyArtifactsDir  = "ARTIFACTS_DIR"
	KeyWebBind       = "WEB_BIND"
	KeyWebPort       = "WEB_PORT"
	KeyS3Endpoint    = "S3_ENDPOINT"
	KeyS3Bucket      = "S3_BUCKET"
	KeyS3Region      = "S3_REGION"
	KeyS3AccessKey   = "S3_ACCESS_KEY_ID"
	KeyS3SecretKey   = "S3_SECRET_ACCESS_KEY"
	KeyDisabledTools = "DISABLED_TOOLS"
)

// Recognition backends.
const (
	BackendGemini    = "gemini"
	BackendTesseract = "tesseract"
)

// Config holds application configuration.
//
// The API key is the one setting changed at runtime, from the desktop
// Settings tab and the web UI, so it is reached through APIKey and
// StoreAPIKey. The other fields are fixed after Load.
type Config struct {
	// mu guards apiKey and serializes writes to the settings file.
	mu sync.RWMutex

	// apiKey is the recognition backend credential. Empty means unconfigured;
	// the app still starts and recognition calls fail with CONFIG_ERROR.
	apiKey string

	// Model is the Gemini model used for text extraction.
	Model string

	// Backend selects the recognizer: "gemini" or "tesseract".
	Backend string

	// TesseractLang is the language code passed to Tesseract.
	TesseractLang string

	// Hotkey is the global shortcut, e.g. "ctrl+m" or "ctrl+shift+s".
	Hotkey string

	// PageSize is the initial history page size (5, 10, 20 or 50).
	PageSize int

	// SortOrder is the store ordering for history pages: "newest" or "oldest".
	SortOrder string

	// SettleDelay is the synchronous wait between overlay teardown and the
	// pixel read, so the overlay never appears in its own capture.
	SettleDelay time.Duration

	// ArtifactsDir is where screenshot PNGs are written.
	ArtifactsDir string

	// WebBind and WebPort address the history web UI.
	WebBind string
	WebPort int

	// S3 optionally mirrors every new artifact to a bucket.
	S3 S3Config

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string

	path     string
	warnings []error
}

// S3Config configures the optional artifact mirror.
// The mirror is enabled only when Bucket is set.
type S3Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether an S3 mirror is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// DefaultConfig returns the default configuration rooted at baseDir.
func DefaultConfig(baseDir string) *Config {
	return &Config{
		Model:         "gemini-2.0-flash",
		Backend:       BackendGemini,
		TesseractLang: "eng",
		Hotkey:        "ctrl+m",
		PageSize:      10,
		SortOrder:     "newest",
		SettleDelay:   200 * time.Millisecond,
		ArtifactsDir:  filepath.Join(baseDir, "artifacts"),
		WebBind:       "127.0.0.1",
		WebPort:       8765,
		S3:            S3Config{Region: "us-east-1"},
		path:          filepath.Join(baseDir, FileName),
	}
}

// Load loads configuration from baseDir/config.env.
// Returns default config if the file doesn't exist. An invalid setting is
// replaced by its default and reported through Warnings; only a file that
// exists but cannot be read is an error.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.grabtext.
func Load(baseDir string) (*Config, error) {
	def := DefaultConfig(baseDir)

	v := viper.New()
	v.SetConfigFile(def.path)
	v.SetConfigType("env")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault(KeyModel, def.Model)
	v.SetDefault(KeyBackend, def.Backend)
	v.SetDefault(KeyTesseractLang, def.TesseractLang)
	v.SetDefault(KeyHotkey, def.Hotkey)
	v.SetDefault(KeyPageSize, def.PageSize)
	v.SetDefault(KeySortOrder, def.SortOrder)
	v.SetDefault(KeySettleDelayMS, def.SettleDelay.Milliseconds())
	v.SetDefault(KeyArtifactsDir, def.ArtifactsDir)
	v.SetDefault(KeyWebBind, def.WebBind)
	v.SetDefault(KeyWebPort, def.WebPort)
	v.SetDefault(KeyS3Region, def.S3.Region)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read %s: %w", def.path, err)
		}
	}

	cfg := &Config{
		apiKey:        strings.TrimSpace(v.GetString(KeyAPIKey)),
		Model:         v.GetString(KeyModel),
		Backend:       strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		TesseractLang: v.GetString(KeyTesseractLang),
		Hotkey:        v.GetString(KeyHotkey),
		PageSize:      v.GetInt(KeyPageSize),
		SortOrder:     v.GetString(KeySortOrder),
		SettleDelay:   time.Duration(v.GetInt64(KeySettleDelayMS)) * time.Millisecond,
		ArtifactsDir:  v.GetString(KeyArtifactsDir),
		WebBind:       v.GetString(KeyWebBind),
		WebPort:       v.GetInt(KeyWebPort),
		S3: S3Config{
			Endpoint:        v.GetString(KeyS3Endpoint),
			Bucket:          v.GetString(KeyS3Bucket),
			Region:          v.GetString(KeyS3Region),
			AccessKeyID:     v.GetString(KeyS3AccessKey),
			SecretAccessKey: v.GetString(KeyS3SecretKey),
		},
		DisabledTools: splitList(v.GetString(KeyDisabledTools)),
		path:          def.path,
	}

	cfg.warnings = cfg.fallBack(def)
	return cfg, nil
}

// fieldRule checks one setting and restores its default.
type fieldRule struct {
	check func(c *Config) error
	reset func(c, def *Config)
}

var fieldRules = []fieldRule{
	{
		check: func(c *Config) error {
			switch c.Backend {
			case BackendGemini, BackendTesseract:
				return nil
			}
			return gerrors.NewConfig(KeyBackend, fmt.Sprintf("unknown OCR backend %q (want %q or %q)", c.Backend, BackendGemini, BackendTesseract))
		},
		reset: func(c, def *Config) { c.Backend = def.Backend },
	},
	{
		check: func(c *Config) error {
			switch c.SortOrder {
			case "newest", "oldest":
				return nil
			}
			return gerrors.NewConfig(KeySortOrder, fmt.Sprintf("unknown sort order %q (want \"newest\" or \"oldest\")", c.SortOrder))
		},
		reset: func(c, def *Config) { c.SortOrder = def.SortOrder },
	},
	{
		check: func(c *Config) error {
			if c.SettleDelay < 0 {
				return gerrors.NewConfig(KeySettleDelayMS, "settle delay must not be negative")
			}
			return nil
		},
		reset: func(c, def *Config) { c.SettleDelay = def.SettleDelay },
	},
	{
		check: func(c *Config) error {
			if c.WebPort <= 0 || c.WebPort > 65535 {
				return gerrors.NewConfig(KeyWebPort, fmt.Sprintf("invalid web port %d", c.WebPort))
			}
			return nil
		},
		reset: func(c, def *Config) { c.WebPort = def.WebPort },
	},
}

// Validate checks settings that would otherwise fail much later.
// A missing API key is not an error here.
func (c *Config) Validate() error {
	for _, rule := range fieldRules {
		if err := rule.check(c); err != nil {
			return err
		}
	}
	return nil
}

// fallBack resets every invalid setting to its value in def and returns one
// CONFIG_ERROR per setting it replaced.
func (c *Config) fallBack(def *Config) []error {
	var replaced []error
	for _, rule := range fieldRules {
		if err := rule.check(c); err != nil {
			rule.reset(c, def)
			replaced = append(replaced, err)
		}
	}
	return replaced
}

// Warnings lists the invalid settings Load replaced with defaults.
func (c *Config) Warnings() []error {
	return c.warnings
}

// Path returns the settings file location.
func (c *Config) Path() string {
	return c.path
}

// APIKey returns the backend credential.
func (c *Config) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// SetAPIKey stores a new backend credential in memory. Call Save to persist,
// or use StoreAPIKey to do both.
func (c *Config) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return gerrors.NewInvalidRequest("api key must not be empty")
	}
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
	return nil
}

// StoreAPIKey sets the backend credential and writes the settings file.
// If the write fails the previous key stays in effect.
func (c *Config) StoreAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return gerrors.NewInvalidRequest("api key must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.apiKey
	c.apiKey = key
	if err := c.write(); err != nil {
		c.apiKey = prev
		return gerrors.NewConfig(KeyAPIKey, "failed to save config: "+err.Error())
	}
	return nil
}

// HasAPIKey reports whether a backend credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey() != ""
}

// Save writes the configuration back to its file with owner-only permissions.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write()
}

// write saves the file. The caller holds mu.
func (c *Config) write() error {
	if c.path == "" {
		return gerrors.NewInternal(errors.New("config has no file path"))
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigPermissions(0600)

	v.Set(KeyAPIKey, c.apiKey)
	v.Set(KeyModel, c.Model)
	v.Set(KeyBackend, c.Backend)
	v.Set(KeyTesseractLang, c.TesseractLang)
	v.Set(KeyHotkey, c.Hotkey)
	v.Set(KeyPageSize, c.PageSize)
	v.Set(KeySortOrder, c.SortOrder)
	v.Set(KeySettleDelayMS, c.SettleDelay.Milliseconds())
	v.Set(KeyArtifactsDir, c.ArtifactsDir)
	v.Set(KeyWebBind, c.WebBind)
	v.Set(KeyWebPort, c.WebPort)
	if c.S3.Enabled() {
		v.Set(KeyS3Endpoint, c.S3.Endpoint)
		v.Set(KeyS3Bucket, c.S3.Bucket)
		v.Set(KeyS3Region, c.S3.Region)
		v.Set(KeyS3AccessKey, c.S3.AccessKeyID)
		v.Set(KeyS3SecretKey, c.S3.SecretAccessKey)
	}
	if len(c.DisabledTools) > 0 {
		v.Set(KeyDisabledTools, strings.Join(c.DisabledTools, ","))
	}

	if err := v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	// WriteConfigAs only applies permissions on create
	_ = os.Chmod(c.path, 0600)
	return nil
}

// splitList parses a comma-separated value, trimming whitespace and
// removing duplicates.
func splitList(s string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !seen[part] {
			seen[part] = true
			result = append(result, part)
		}
	}
	return result
}
