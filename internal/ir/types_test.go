package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixPressedRowMajor(t *testing.T) {
	m := NewMatrix(3, 4,
		Position{Row: 2, Col: 0},
		Position{Row: 0, Col: 3},
		Position{Row: 0, Col: 1},
		Position{Row: 9, Col: 9}, // outside the grid, ignored
	)

	assert.Equal(t, []Position{{0, 1}, {0, 3}, {2, 0}}, m.Pressed())
	assert.True(t, m.IsPressed(Position{Row: 0, Col: 3}))
	assert.False(t, m.IsPressed(Position{Row: 1, Col: 1}))
	assert.False(t, m.IsPressed(Position{Row: -1, Col: 0}))
}

func TestMatrixFromGridCopies(t *testing.T) {
	grid := [][]bool{{true, false}, {false}}
	m := MatrixFromGrid(grid)

	grid[0][0] = false
	assert.True(t, m.IsPressed(Position{Row: 0, Col: 0}), "snapshot must not alias caller's grid")
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 2, m.Cols())
}

func TestEmptyMatrix(t *testing.T) {
	var m Matrix
	assert.Empty(t, m.Pressed())
}

func TestLayerStackLayers(t *testing.T) {
	s := LayerStack(0b101)
	assert.Equal(t, []int{0, 2}, s.Layers())
	assert.True(t, s.Has(2))
	assert.False(t, s.Has(1))
	assert.False(t, s.Has(40))
}

func TestExpandTap(t *testing.T) {
	in := []KeyEvent{PressOf(KeyLeftCtrl), TapOf(KeyD), ReleaseOf(KeyLeftCtrl)}
	assert.Equal(t, []KeyEvent{
		PressOf(KeyLeftCtrl),
		PressOf(KeyD),
		ReleaseOf(KeyD),
		ReleaseOf(KeyLeftCtrl),
	}, Expand(in))
}

func TestParseEdgeAndKind(t *testing.T) {
	e, err := ParseEdge("release")
	require.NoError(t, err)
	assert.Equal(t, ReleaseEdge, e)

	_, err = ParseEdge("hold")
	assert.Error(t, err)

	k, err := ParseKeyEventKind("tap")
	require.NoError(t, err)
	assert.Equal(t, Tap, k)
}

func TestKeymapBindingBounds(t *testing.T) {
	km := tinyKeymap(KeyA)

	a, ok := km.Binding(Position{0, 0}, 0).Action()
	require.True(t, ok)
	assert.Equal(t, Key(KeyA), a)

	assert.True(t, km.Binding(Position{0, 0}, 3).IsTransparent(), "undefined layers fall through")

	a, ok = km.Binding(Position{5, 5}, 0).Action()
	require.True(t, ok)
	assert.Equal(t, None(), a)
}

func TestParsePosition(t *testing.T) {
	p, err := ParsePosition(" 3, 12 ")
	require.NoError(t, err)
	assert.Equal(t, Position{Row: 3, Col: 12}, p)
	assert.Equal(t, "3,12", p.String())

	for _, bad := range []string{"", "3", "a,1", "1,b", "-1,0", "1,2,3"} {
		_, err := ParsePosition(bad)
		assert.Error(t, err, bad)
	}
}
