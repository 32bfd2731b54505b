package ops

import (
	"sync"

	"github.com/hpungsan/grabtext/internal/config"
)

// Reloader rebuilds a component from updated configuration.
type Reloader interface {
	Reload(cfg *config.Config) error
}

// SaveAPIKeyOutput contains the result of the SaveAPIKey operation.
type SaveAPIKeyOutput struct {
	Path    string `json:"path"`
	Backend string `json:"backend"`
}

// saveMu keeps each key change and its reload together, so the recognizer
// always ends up built from the last key written.
var saveMu sync.Mutex

// SaveAPIKey stores a new backend credential in cfg, writes the config file
// and reloads the recognizer so the key takes effect without a restart.
// If the file cannot be written the previous key stays in effect.
// reloader may be nil. Safe to call from several goroutines.
func SaveAPIKey(cfg *config.Config, reloader Reloader, key string) (*SaveAPIKeyOutput, error) {
	saveMu.Lock()
	defer saveMu.Unlock()

	if err := cfg.StoreAPIKey(key); err != nil {
		return nil, err
	}
	if reloader != nil {
		if err := reloader.Reload(cfg); err != nil {
			return nil, err
		}
	}
	return &SaveAPIKeyOutput{Path: cfg.Path(), Backend: cfg.Backend}, nil
}
