package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// encoding to change without colliding with old hashes.
const (
	DomainKeymap = "keycore/keymap/v1"
	DomainTick   = "keycore/tick/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// KeymapHash identifies a compiled keymap. Sessions record it so a replay
// can refuse to run against a different table.
func KeymapHash(k *Keymap) (string, error) {
	canonical, err := MarshalCanonical(KeymapValue(k))
	if err != nil {
		return "", fmt.Errorf("keymap hash: %w", err)
	}
	return hashWithDomain(DomainKeymap, canonical), nil
}

// TickHash identifies the observable outcome of one tick: the layer stack
// after the tick, the indicators and the emitted events.
func TickHash(stack LayerStack, ind IndicatorState, events []KeyEvent) (string, error) {
	obj := Object{
		"layer_state": Int(stack),
		"indicators": Object{
			"l1":    Bool(ind.L1),
			"l2":    Bool(ind.L2),
			"l3":    Bool(ind.L3),
			"board": Bool(ind.Board),
		},
		"events": EventsValue(events),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("tick hash: %w", err)
	}
	return hashWithDomain(DomainTick, canonical), nil
}

// MustKeymapHash is like KeymapHash but panics on error.
//
// KeymapValue emits only strings, ints, lists and objects, so hashing never
// fails for any Keymap, including every keymap Validate accepts. engine.New
// relies on this.
func MustKeymapHash(k *Keymap) string {
	h, err := KeymapHash(k)
	if err != nil {
		panic(err)
	}
	return h
}
