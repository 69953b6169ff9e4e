package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON: object keys sorted by UTF-16
// code units, no insignificant whitespace, NFC-normalised strings, no HTML
// escaping, no floats and no null. Golden traces and content hashes depend
// on this being byte-stable.
func MarshalCanonical(v any) ([]byte, error) {
	val, err := ToValue(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Str:
		return writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("%q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// writeCanonicalString NFC-normalises s and writes it quoted. Only control
// characters, backslash and quote are escaped; U+2028 and U+2029 are kept
// literal, unlike encoding/json's default.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	out = unescapeLineSeparators(out)
	buf.Write(out)
	return nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters, leaving \\u2028 (an escaped backslash followed by text) alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && string(data[i+1:i+5]) == "u202" &&
			(data[i+5] == '8' || data[i+5] == '9') && trailingBackslashes(out)%2 == 0 {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i])
	}
	return out
}

func trailingBackslashes(b []byte) int {
	n := 0
	for i := len(b) - 1; i >= 0 && b[i] == '\\'; i-- {
		n++
	}
	return n
}

// KeymapValue renders a keymap as a canonical Value. Bindings are rendered
// in keymap source syntax so the output doubles as a readable dump.
func KeymapValue(k *Keymap) Object {
	layers := make(List, len(k.Layers))
	for i, l := range k.Layers {
		rows := make(List, len(l.Bindings))
		for r, row := range l.Bindings {
			cells := make(List, len(row))
			for c, b := range row {
				cells[c] = Str(b.String())
			}
			rows[r] = cells
		}
		layers[i] = Object{"name": Str(l.Name), "keys": rows}
	}

	macros := make(List, len(k.Macros))
	for i, m := range k.Macros {
		obj := Object{"id": Int(m.ID), "name": Str(m.Name)}
		if m.Held != nil {
			obj["held"] = Str(m.Held.String())
		}
		if m.Script != nil {
			obj["script"] = EventsValue(m.Script)
		}
		macros[i] = obj
	}

	return Object{
		"name":   Str(k.Name),
		"rows":   Int(k.Rows),
		"cols":   Int(k.Cols),
		"layers": layers,
		"macros": macros,
	}
}

// EventsValue renders events as a list of "kind KC_X" strings.
func EventsValue(events []KeyEvent) List {
	out := make(List, len(events))
	for i, e := range events {
		out[i] = Str(e.String())
	}
	return out
}
