package desktop

import "golang.design/x/hotkey"

func platformModifier(name string) (hotkey.Modifier, bool) {
	switch name {
	case "ctrl":
		return hotkey.ModCtrl, true
	case "shift":
		return hotkey.ModShift, true
	case "alt":
		return hotkey.ModOption, true
	case "super":
		return hotkey.ModCmd, true
	}
	return 0, false
}
