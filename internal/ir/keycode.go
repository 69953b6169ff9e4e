package ir

import "fmt"

// Keycode is a HID keyboard usage id as reported to the host.
type Keycode uint8

// Keycodes used by the shipped keymaps. Values follow the HID usage tables;
// media and mouse codes follow the TMK internal numbering.
const (
	KeyNone Keycode = 0x00

	KeyA Keycode = 0x04 + iota - 1
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeySpace
	KeyMinus
	KeyEqual
	KeyLeftBracket
	KeyRightBracket
	KeyBackslash
)

const (
	KeySemicolon Keycode = 0x33 + iota
	KeyQuote
	KeyGrave
	KeyComma
	KeyDot
	KeySlash
	KeyCapsLock
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

const (
	KeyPageUp      Keycode = 0x4B
	KeyPageDown    Keycode = 0x4E
	KeyRight       Keycode = 0x4F
	KeyLeft        Keycode = 0x50
	KeyDown        Keycode = 0x51
	KeyUp          Keycode = 0x52
	KeyApplication Keycode = 0x65

	KeyMute       Keycode = 0xA8
	KeyVolumeUp   Keycode = 0xA9
	KeyVolumeDown Keycode = 0xAA
	KeyMediaNext  Keycode = 0xAB
	KeyMediaPrev  Keycode = 0xAC
	KeyMediaStop  Keycode = 0xAD
	KeyMediaPlay  Keycode = 0xAE
	KeyWWWBack    Keycode = 0xB6

	KeyLeftCtrl   Keycode = 0xE0
	KeyLeftShift  Keycode = 0xE1
	KeyLeftAlt    Keycode = 0xE2
	KeyLeftGUI    Keycode = 0xE3
	KeyRightCtrl  Keycode = 0xE4
	KeyRightShift Keycode = 0xE5
	KeyRightAlt   Keycode = 0xE6
	KeyRightGUI   Keycode = 0xE7

	KeyMouseUp    Keycode = 0xF0
	KeyMouseDown  Keycode = 0xF1
	KeyMouseLeft  Keycode = 0xF2
	KeyMouseRight Keycode = 0xF3
	KeyMouseBtn1  Keycode = 0xF4
	KeyMouseBtn2  Keycode = 0xF5
)

// keycodeNames holds the canonical QMK-style name for every known keycode.
var keycodeNames = map[Keycode]string{
	KeyNone: "KC_NO",
	KeyA:    "KC_A", KeyB: "KC_B", KeyC: "KC_C", KeyD: "KC_D", KeyE: "KC_E",
	KeyF: "KC_F", KeyG: "KC_G", KeyH: "KC_H", KeyI: "KC_I", KeyJ: "KC_J",
	KeyK: "KC_K", KeyL: "KC_L", KeyM: "KC_M", KeyN: "KC_N", KeyO: "KC_O",
	KeyP: "KC_P", KeyQ: "KC_Q", KeyR: "KC_R", KeyS: "KC_S", KeyT: "KC_T",
	KeyU: "KC_U", KeyV: "KC_V", KeyW: "KC_W", KeyX: "KC_X", KeyY: "KC_Y",
	KeyZ: "KC_Z",
	Key1: "KC_1", Key2: "KC_2", Key3: "KC_3", Key4: "KC_4", Key5: "KC_5",
	Key6: "KC_6", Key7: "KC_7", Key8: "KC_8", Key9: "KC_9", Key0: "KC_0",

	KeyEnter:        "KC_ENT",
	KeyEscape:       "KC_ESC",
	KeyBackspace:    "KC_BSPC",
	KeyTab:          "KC_TAB",
	KeySpace:        "KC_SPC",
	KeyMinus:        "KC_MINS",
	KeyEqual:        "KC_EQL",
	KeyLeftBracket:  "KC_LBRC",
	KeyRightBracket: "KC_RBRC",
	KeyBackslash:    "KC_BSLS",
	KeySemicolon:    "KC_SCLN",
	KeyQuote:        "KC_QUOT",
	KeyGrave:        "KC_GRV",
	KeyComma:        "KC_COMM",
	KeyDot:          "KC_DOT",
	KeySlash:        "KC_SLSH",
	KeyCapsLock:     "KC_CAPS",

	KeyF1: "KC_F1", KeyF2: "KC_F2", KeyF3: "KC_F3", KeyF4: "KC_F4",
	KeyF5: "KC_F5", KeyF6: "KC_F6", KeyF7: "KC_F7", KeyF8: "KC_F8",
	KeyF9: "KC_F9", KeyF10: "KC_F10", KeyF11: "KC_F11", KeyF12: "KC_F12",

	KeyPageUp:      "KC_PGUP",
	KeyPageDown:    "KC_PGDN",
	KeyRight:       "KC_RGHT",
	KeyLeft:        "KC_LEFT",
	KeyDown:        "KC_DOWN",
	KeyUp:          "KC_UP",
	KeyApplication: "KC_APP",

	KeyMute:       "KC_MUTE",
	KeyVolumeUp:   "KC_VOLU",
	KeyVolumeDown: "KC_VOLD",
	KeyMediaNext:  "KC_MNXT",
	KeyMediaPrev:  "KC_MPRV",
	KeyMediaStop:  "KC_MSTP",
	KeyMediaPlay:  "KC_MPLY",
	KeyWWWBack:    "KC_WBAK",

	KeyLeftCtrl:   "KC_LCTL",
	KeyLeftShift:  "KC_LSFT",
	KeyLeftAlt:    "KC_LALT",
	KeyLeftGUI:    "KC_LGUI",
	KeyRightCtrl:  "KC_RCTL",
	KeyRightShift: "KC_RSFT",
	KeyRightAlt:   "KC_RALT",
	KeyRightGUI:   "KC_RGUI",

	KeyMouseUp:    "KC_MS_U",
	KeyMouseDown:  "KC_MS_D",
	KeyMouseLeft:  "KC_MS_L",
	KeyMouseRight: "KC_MS_R",
	KeyMouseBtn1:  "KC_BTN1",
	KeyMouseBtn2:  "KC_BTN2",
}

// keycodeAliases are accepted on input but never produced by String.
var keycodeAliases = map[string]Keycode{
	"KC_LCTRL":  KeyLeftCtrl,
	"KC_RCTRL":  KeyRightCtrl,
	"KC_LSHIFT": KeyLeftShift,
	"KC_RSHIFT": KeyRightShift,
	"KC_ENTER":  KeyEnter,
	"KC_SPACE":  KeySpace,
	"KC_RIGHT":  KeyRight,
}

var keycodesByName = func() map[string]Keycode {
	m := make(map[string]Keycode, len(keycodeNames)+len(keycodeAliases))
	for kc, name := range keycodeNames {
		m[name] = kc
	}
	for name, kc := range keycodeAliases {
		m[name] = kc
	}
	return m
}()

// KeycodeByName looks up a keycode by its QMK-style name (e.g. "KC_LCTL").
func KeycodeByName(name string) (Keycode, bool) {
	kc, ok := keycodesByName[name]
	return kc, ok
}

// String returns the QMK-style name, or a hex literal for unnamed codes.
func (k Keycode) String() string {
	if name, ok := keycodeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(k))
}

// IsModifier reports whether k is one of the eight modifier keycodes.
func (k Keycode) IsModifier() bool {
	return k >= KeyLeftCtrl && k <= KeyRightGUI
}

// Mod returns the Mods bit for a modifier keycode, or 0.
func (k Keycode) Mod() Mods {
	if !k.IsModifier() {
		return 0
	}
	return Mods(1) << (k - KeyLeftCtrl)
}

// Mods is a bitmask of held modifiers, in HID report bit order.
type Mods uint8

const (
	ModLCtrl Mods = 1 << iota
	ModLShift
	ModLAlt
	ModLGUI
	ModRCtrl
	ModRShift
	ModRAlt
	ModRGUI
)

// Has reports whether all bits of mod are set in m.
func (m Mods) Has(mod Mods) bool {
	return m&mod == mod
}

// Keycodes returns the modifier keycodes for m in HID bit order, which is
// the order modifiers are pressed; release uses the reverse.
func (m Mods) Keycodes() []Keycode {
	var out []Keycode
	for i := 0; i < 8; i++ {
		if m&(1<<i) != 0 {
			out = append(out, KeyLeftCtrl+Keycode(i))
		}
	}
	return out
}

var modNames = []string{"LCTL", "LSFT", "LALT", "LGUI", "RCTL", "RSFT", "RALT", "RGUI"}

// ModByName maps a short modifier name ("LCTL", "RSFT", ...) to its bit.
func ModByName(name string) (Mods, bool) {
	for i, n := range modNames {
		if n == name {
			return Mods(1) << i, true
		}
	}
	return 0, false
}

// String renders m as "LCTL|LSFT"; the empty mask renders as "".
func (m Mods) String() string {
	s := ""
	for i, n := range modNames {
		if m&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n
	}
	return s
}
