package player

import "strings"

// Key is a keyboard binding understood by the controller.
type Key string

const (
	KeySpace  Key = "space"
	KeyLeft   Key = "left"
	KeyRight  Key = "right"
	KeyM      Key = "m"
	KeyF      Key = "f"
	KeyEscape Key = "escape"
)

// ParseKey maps a key name as reported by a terminal or browser to a Key.
func ParseKey(name string) (Key, bool) {
	if name == " " {
		return KeySpace, true
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "space", "spacebar":
		return KeySpace, true
	case "left", "arrowleft":
		return KeyLeft, true
	case "right", "arrowright":
		return KeyRight, true
	case "m":
		return KeyM, true
	case "f":
		return KeyF, true
	case "esc", "escape":
		return KeyEscape, true
	default:
		return "", false
	}
}
