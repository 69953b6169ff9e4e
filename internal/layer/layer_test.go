package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/keycore/internal/ir"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		stack ir.LayerStack
		want  int
	}{
		{"base only", 0b1, 0},
		{"bits 0 and 1", 0b11, 1},
		{"bits 0 and 2", 0b101, 2},
		{"bits 0, 1 and 2", 0b111, 2},
		{"high layer", 1 | 1<<31, 31},
		{"zero stack", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.stack))
		})
	}
}

func TestResolveAllSingleBits(t *testing.T) {
	for i := 0; i < ir.MaxLayers; i++ {
		stack := ir.BaseLayerStack | ir.LayerStack(1)<<uint(i)
		assert.Equal(t, i, Resolve(stack), "layer %d", i)
	}
}

func threeLayerKeymap() *ir.Keymap {
	return &ir.Keymap{
		Name: "test",
		Rows: 1,
		Cols: 3,
		Layers: []ir.Layer{
			{Name: "BASE", Bindings: [][]ir.Binding{{
				ir.Bound(ir.Key(ir.KeyA)), ir.Bound(ir.Key(ir.KeyB)), ir.Bound(ir.Key(ir.KeyC)),
			}}},
			{Name: "SYMB", Bindings: [][]ir.Binding{{
				ir.Bound(ir.Key(ir.KeyF1)), ir.Transparent, ir.Transparent,
			}}},
			{Name: "MDIA", Bindings: [][]ir.Binding{{
				ir.Transparent, ir.Transparent, ir.Bound(ir.Key(ir.KeyMute)),
			}}},
		},
	}
}

func TestLookupFallsThroughActiveLayers(t *testing.T) {
	km := threeLayerKeymap()
	all := ir.LayerStack(0b111)
	assert.Equal(t, ir.Key(ir.KeyF1), Lookup(km, ir.Position{Row: 0, Col: 0}, all), "MDIA -> SYMB")
	assert.Equal(t, ir.Key(ir.KeyB), Lookup(km, ir.Position{Row: 0, Col: 1}, all), "MDIA -> SYMB -> BASE")
	assert.Equal(t, ir.Key(ir.KeyMute), Lookup(km, ir.Position{Row: 0, Col: 2}, all))
	assert.Equal(t, ir.Key(ir.KeyC), Lookup(km, ir.Position{Row: 0, Col: 2}, 0b011))
	assert.Equal(t, ir.Key(ir.KeyA), Lookup(km, ir.Position{Row: 0, Col: 0}, ir.BaseLayerStack))
}

func TestLookupSkipsInactiveLayers(t *testing.T) {
	km := threeLayerKeymap()
	// Only BASE and MDIA active: MDIA's transparent col 0 must not see
	// SYMB's KC_F1.
	assert.Equal(t, ir.Key(ir.KeyA), Lookup(km, ir.Position{Row: 0, Col: 0}, 0b101))
	assert.Equal(t, ir.Key(ir.KeyMute), Lookup(km, ir.Position{Row: 0, Col: 2}, 0b101))
}

func TestLookupUndefinedLayerFallsThrough(t *testing.T) {
	km := threeLayerKeymap()
	assert.Equal(t, ir.Key(ir.KeyMute), Lookup(km, ir.Position{Row: 0, Col: 2}, 0b10000101))
	assert.Equal(t, ir.Key(ir.KeyA), Lookup(km, ir.Position{Row: 0, Col: 0}, 0b10000001))
}

func TestLookupTransparentBaseIsNone(t *testing.T) {
	km := &ir.Keymap{Rows: 1, Cols: 1, Layers: []ir.Layer{{Bindings: [][]ir.Binding{{ir.Transparent}}}}}
	assert.Equal(t, ir.None(), Lookup(km, ir.Position{}, ir.BaseLayerStack))
}

func TestStackKeepsBaseLayer(t *testing.T) {
	s := NewStack()
	assert.Equal(t, ir.BaseLayerStack, s.State())

	s.Off(0)
	s.Toggle(0)
	assert.Equal(t, ir.BaseLayerStack, s.State())

	s.On(2)
	assert.Equal(t, ir.LayerStack(0b101), s.State())
	s.Toggle(1)
	assert.Equal(t, ir.LayerStack(0b111), s.State())
	s.Off(2)
	assert.Equal(t, ir.LayerStack(0b011), s.State())
	s.On(64)
	assert.Equal(t, ir.LayerStack(0b011), s.State())

	s.Clear()
	assert.Equal(t, ir.BaseLayerStack, s.State())
}

func TestNewStackFromForcesBase(t *testing.T) {
	assert.Equal(t, ir.LayerStack(0b101), NewStackFrom(0b100).State())
}
