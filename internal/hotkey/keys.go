//go:build linux

package hotkey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holoplot/go-evdev"
)

// DefaultKey is the keypad 7 key.
const DefaultKey = "KEY_KP7"

// ParseKey resolves a key name ("KEY_KP7", "kp7", "f13") or a decimal/hex
// code ("71", "0x47") to an EV_KEY code.
func ParseKey(raw string) (evdev.EvCode, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return 0, fmt.Errorf("empty key")
	}

	if code, err := strconv.ParseUint(token, 0, 16); err == nil {
		if code == 0 || code > uint64(evdev.KEY_MAX) {
			return 0, fmt.Errorf("key code %d out of range", code)
		}
		return evdev.EvCode(code), nil
	}

	name := strings.ToUpper(token)
	if code, ok := evdev.KEYFromString[name]; ok {
		return code, nil
	}
	if code, ok := evdev.KEYFromString["KEY_"+name]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("unknown key %q", raw)
}

// KeyName returns the symbolic name for code.
func KeyName(code evdev.EvCode) string {
	return evdev.CodeName(evdev.EV_KEY, code)
}
