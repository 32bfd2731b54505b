package desktop

import "golang.design/x/hotkey"

// On X11, Mod1 is Alt and Mod4 is the Super key.
func platformModifier(name string) (hotkey.Modifier, bool) {
	switch name {
	case "ctrl":
		return hotkey.ModCtrl, true
	case "shift":
		return hotkey.ModShift, true
	case "alt":
		return hotkey.Mod1, true
	case "super":
		return hotkey.Mod4, true
	}
	return 0, false
}
