package desktop

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.design/x/hotkey"

	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/errors"
)

// Combo is a parsed hotkey setting such as "ctrl+m" or "ctrl+shift+f9".
type Combo struct {
	Mods []string
	Key  string
}

func (c Combo) String() string {
	return strings.Join(append(append([]string{}, c.Mods...), c.Key), "+")
}

// ParseCombo parses a "+"-separated hotkey setting. Modifier names are
// ctrl, shift, alt and super; the key is a letter, a digit, f1-f12 or
// space. Parsing is case-insensitive.
func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) < 2 {
		return Combo{}, errors.NewConfig(config.KeyHotkey, fmt.Sprintf("hotkey %q needs at least one modifier and a key", s))
	}

	var c Combo
	seen := make(map[string]bool)
	for _, p := range parts[:len(parts)-1] {
		p = strings.TrimSpace(p)
		switch p {
		case "ctrl", "shift", "alt", "super":
		case "control":
			p = "ctrl"
		case "cmd", "win":
			p = "super"
		default:
			return Combo{}, errors.NewConfig(config.KeyHotkey, fmt.Sprintf("unknown modifier %q in hotkey %q", p, s))
		}
		if !seen[p] {
			seen[p] = true
			c.Mods = append(c.Mods, p)
		}
	}

	c.Key = strings.TrimSpace(parts[len(parts)-1])
	if _, ok := keyFor(c.Key); !ok {
		return Combo{}, errors.NewConfig(config.KeyHotkey, fmt.Sprintf("unsupported key %q in hotkey %q", c.Key, s))
	}
	return c, nil
}

var namedKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace,
	"f1":    hotkey.KeyF1,
	"f2":    hotkey.KeyF2,
	"f3":    hotkey.KeyF3,
	"f4":    hotkey.KeyF4,
	"f5":    hotkey.KeyF5,
	"f6":    hotkey.KeyF6,
	"f7":    hotkey.KeyF7,
	"f8":    hotkey.KeyF8,
	"f9":    hotkey.KeyF9,
	"f10":   hotkey.KeyF10,
	"f11":   hotkey.KeyF11,
	"f12":   hotkey.KeyF12,
}

var letterKeys = [...]hotkey.Key{
	hotkey.KeyA, hotkey.KeyB, hotkey.KeyC, hotkey.KeyD, hotkey.KeyE, hotkey.KeyF,
	hotkey.KeyG, hotkey.KeyH, hotkey.KeyI, hotkey.KeyJ, hotkey.KeyK, hotkey.KeyL,
	hotkey.KeyM, hotkey.KeyN, hotkey.KeyO, hotkey.KeyP, hotkey.KeyQ, hotkey.KeyR,
	hotkey.KeyS, hotkey.KeyT, hotkey.KeyU, hotkey.KeyV, hotkey.KeyW, hotkey.KeyX,
	hotkey.KeyY, hotkey.KeyZ,
}

var digitKeys = [...]hotkey.Key{
	hotkey.Key0, hotkey.Key1, hotkey.Key2, hotkey.Key3, hotkey.Key4,
	hotkey.Key5, hotkey.Key6, hotkey.Key7, hotkey.Key8, hotkey.Key9,
}

func keyFor(name string) (hotkey.Key, bool) {
	if k, ok := namedKeys[name]; ok {
		return k, true
	}
	if len(name) == 1 {
		switch ch := name[0]; {
		case ch >= 'a' && ch <= 'z':
			return letterKeys[ch-'a'], true
		case ch >= '0' && ch <= '9':
			return digitKeys[ch-'0'], true
		}
	}
	return 0, false
}

// Listener delivers activations of one global hotkey.
type Listener struct {
	hk  *hotkey.Hotkey
	log *zap.Logger
}

// Register grabs the combination system-wide.
func Register(c Combo, log *zap.Logger) (*Listener, error) {
	mods := make([]hotkey.Modifier, 0, len(c.Mods))
	for _, m := range c.Mods {
		mod, ok := platformModifier(m)
		if !ok {
			return nil, errors.NewConfig(config.KeyHotkey, fmt.Sprintf("modifier %q is not available on this platform", m))
		}
		mods = append(mods, mod)
	}
	key, _ := keyFor(c.Key)

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, errors.NewConfig(config.KeyHotkey, fmt.Sprintf("register %s: %v", c, err))
	}
	log.Info("hotkey registered", zap.Stringer("combo", c))
	return &Listener{hk: hk, log: log}, nil
}

// Run forwards every key press to sched as one call of activate, until ctx
// is cancelled. It unregisters the hotkey on return.
func (l *Listener) Run(ctx context.Context, sched Scheduler, activate func()) {
	defer func() {
		if err := l.hk.Unregister(); err != nil {
			l.log.Warn("hotkey unregister failed", zap.Error(err))
		}
	}()
	forward(ctx, l.hk.Keydown(), sched, activate)
}

func forward(ctx context.Context, events <-chan hotkey.Event, sched Scheduler, activate func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			sched.Schedule(activate)
		}
	}
}
