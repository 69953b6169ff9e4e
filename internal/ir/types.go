package ir

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MaxLayers is the width of a LayerStack.
const MaxLayers = 32

// LayerStack is the set of active layers; bit i set means layer i is active.
// Bit 0 (the base layer) is always set by whoever owns the stack.
type LayerStack uint32

// BaseLayerStack has only the base layer active.
const BaseLayerStack LayerStack = 1

// Has reports whether layer is active.
func (s LayerStack) Has(layer int) bool {
	if layer < 0 || layer >= MaxLayers {
		return false
	}
	return s&(1<<uint(layer)) != 0
}

// Layers returns the active layers in ascending order.
func (s LayerStack) Layers() []int {
	out := make([]int, 0, bits.OnesCount32(uint32(s)))
	for i := 0; i < MaxLayers; i++ {
		if s.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// Position addresses one switch in the matrix.
type Position struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}

// ParsePosition parses the "row,col" form produced by String.
func ParsePosition(s string) (Position, error) {
	r, c, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Position{}, fmt.Errorf("invalid position %q: expected row,col", s)
	}
	row, err := strconv.Atoi(strings.TrimSpace(r))
	if err != nil || row < 0 {
		return Position{}, fmt.Errorf("invalid position %q: bad row", s)
	}
	col, err := strconv.Atoi(strings.TrimSpace(c))
	if err != nil || col < 0 {
		return Position{}, fmt.Errorf("invalid position %q: bad col", s)
	}
	return Position{Row: row, Col: col}, nil
}

// Matrix is an immutable per-tick snapshot of which positions are pressed.
// The zero value is an empty 0x0 matrix.
type Matrix struct {
	rows, cols int
	cells      []bool
}

// NewMatrix returns an all-released rows x cols snapshot with the given
// positions pressed. Positions outside the grid are ignored.
func NewMatrix(rows, cols int, pressed ...Position) Matrix {
	m := Matrix{rows: rows, cols: cols, cells: make([]bool, rows*cols)}
	for _, p := range pressed {
		if m.inside(p) {
			m.cells[p.Row*cols+p.Col] = true
		}
	}
	return m
}

// MatrixFromGrid copies a row-major boolean grid. Ragged rows are padded
// with released cells to the longest row.
func MatrixFromGrid(grid [][]bool) Matrix {
	cols := 0
	for _, row := range grid {
		if len(row) > cols {
			cols = len(row)
		}
	}
	m := Matrix{rows: len(grid), cols: cols, cells: make([]bool, len(grid)*cols)}
	for r, row := range grid {
		copy(m.cells[r*cols:], row)
	}
	return m
}

func (m Matrix) inside(p Position) bool {
	return p.Row >= 0 && p.Row < m.rows && p.Col >= 0 && p.Col < m.cols
}

// Rows returns the row count.
func (m Matrix) Rows() int { return m.rows }

// Cols returns the column count.
func (m Matrix) Cols() int { return m.cols }

// IsPressed reports whether p is pressed; out-of-range positions are released.
func (m Matrix) IsPressed(p Position) bool {
	return m.inside(p) && m.cells[p.Row*m.cols+p.Col]
}

// Pressed returns the pressed positions in row-major scan order.
func (m Matrix) Pressed() []Position {
	var out []Position
	for i, on := range m.cells {
		if on {
			out = append(out, Position{Row: i / m.cols, Col: i % m.cols})
		}
	}
	return out
}

// MacroID identifies a macro definition.
type MacroID uint8

// Edge is the physical transition that fed a MacroTrigger.
type Edge uint8

const (
	PressEdge Edge = iota + 1
	ReleaseEdge
)

func (e Edge) String() string {
	switch e {
	case PressEdge:
		return "press"
	case ReleaseEdge:
		return "release"
	default:
		return fmt.Sprintf("Edge(%d)", uint8(e))
	}
}

// ParseEdge parses "press" or "release".
func ParseEdge(s string) (Edge, error) {
	switch s {
	case "press":
		return PressEdge, nil
	case "release":
		return ReleaseEdge, nil
	default:
		return 0, fmt.Errorf("invalid edge %q: must be press or release", s)
	}
}

// MacroTrigger is one physical edge on a macro-bound position.
type MacroTrigger struct {
	ID   MacroID
	Edge Edge
}

// KeyEventKind is the kind of synthetic key event.
type KeyEventKind uint8

const (
	Press KeyEventKind = iota + 1
	Release
	// Tap is Press immediately followed by Release, sequenced.
	Tap
)

func (k KeyEventKind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	case Tap:
		return "tap"
	default:
		return fmt.Sprintf("KeyEventKind(%d)", uint8(k))
	}
}

// ParseKeyEventKind parses the String form of a KeyEventKind.
func ParseKeyEventKind(s string) (KeyEventKind, error) {
	switch s {
	case "press":
		return Press, nil
	case "release":
		return Release, nil
	case "tap":
		return Tap, nil
	default:
		return 0, fmt.Errorf("invalid key event kind %q", s)
	}
}

// KeyEvent is one synthetic event handed to the host transport.
type KeyEvent struct {
	Kind    KeyEventKind
	Keycode Keycode
}

// PressOf returns a Press event.
func PressOf(kc Keycode) KeyEvent { return KeyEvent{Kind: Press, Keycode: kc} }

// ReleaseOf returns a Release event.
func ReleaseOf(kc Keycode) KeyEvent { return KeyEvent{Kind: Release, Keycode: kc} }

// TapOf returns a Tap event.
func TapOf(kc Keycode) KeyEvent { return KeyEvent{Kind: Tap, Keycode: kc} }

// String renders "press KC_A".
func (e KeyEvent) String() string {
	return e.Kind.String() + " " + e.Keycode.String()
}

// Expand rewrites every Tap into Press then Release, preserving order, for
// transports that only understand press and release.
func Expand(events []KeyEvent) []KeyEvent {
	out := make([]KeyEvent, 0, len(events))
	for _, e := range events {
		if e.Kind == Tap {
			out = append(out, PressOf(e.Keycode), ReleaseOf(e.Keycode))
			continue
		}
		out = append(out, e)
	}
	return out
}

// IndicatorState is the full set of status outputs for one tick.
// L3 is the modifier-held indicator.
type IndicatorState struct {
	L1    bool `json:"l1" yaml:"l1"`
	L2    bool `json:"l2" yaml:"l2"`
	L3    bool `json:"l3" yaml:"l3"`
	Board bool `json:"board" yaml:"board"`
}

func (s IndicatorState) String() string {
	return fmt.Sprintf("L1=%s L2=%s L3=%s board=%s", onOff(s.L1), onOff(s.L2), onOff(s.L3), onOff(s.Board))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Layer is one named page of bindings, indexed [row][col].
type Layer struct {
	Name     string
	Bindings [][]Binding
}

// MacroDef is a compiled macro definition. Exactly one of Held and Script
// is meaningful: Held mirrors the trigger edge on one keycode, Script is
// emitted in full on the press edge.
type MacroDef struct {
	ID     MacroID
	Name   string
	Held   *Keycode
	Script []KeyEvent
}

// Keymap is the static position-to-action table for every layer, plus the
// macro definitions it references.
type Keymap struct {
	Name   string
	Rows   int
	Cols   int
	Layers []Layer
	Macros []MacroDef
}

// Binding returns the raw binding at pos on layer. Layers the keymap does
// not define are Transparent; positions outside the grid are None.
func (k *Keymap) Binding(pos Position, layer int) Binding {
	if layer >= len(k.Layers) {
		return Transparent
	}
	if layer < 0 {
		return Bound(None())
	}
	rows := k.Layers[layer].Bindings
	if pos.Row < 0 || pos.Row >= len(rows) || pos.Col < 0 || pos.Col >= len(rows[pos.Row]) {
		return Bound(None())
	}
	return rows[pos.Row][pos.Col]
}
