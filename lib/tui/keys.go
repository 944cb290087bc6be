package tui

// KeyKind identifies a decoded input event.
type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyTab
	KeyShiftTab
	KeyEnter
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyPageUp
	KeyPageDown
	KeyMouseClick
	KeyCtrlC
	KeyCtrlD
)

// Key is one decoded input event. X/Y are populated only for
// KeyMouseClick, as zero-indexed screen cells.
type Key struct {
	Kind KeyKind
	X, Y int
}

// DecodeKeys decodes every input event present in a raw byte buffer
// from an SSH/Telnet client, returning the decoded events in order.
// Unrecognized sequences are skipped a byte
// at a time so one malformed escape can't wedge the whole buffer.
func DecodeKeys(data []byte) []Key {
	var keys []Key
	i := 0
	for i < len(data) {
		switch {
		case data[i] == 0x09:
			keys = append(keys, Key{Kind: KeyTab})
			i++
		case data[i] == 0x0d || data[i] == 0x0a:
			keys = append(keys, Key{Kind: KeyEnter})
			i++
		case data[i] == 0x03:
			keys = append(keys, Key{Kind: KeyCtrlC})
			i++
		case data[i] == 0x04:
			keys = append(keys, Key{Kind: KeyCtrlD})
			i++
		case data[i] == 0x1b:
			n, key := decodeEscape(data[i:])
			if n == 0 {
				i++
				continue
			}
			if key.Kind != KeyNone {
				keys = append(keys, key)
			}
			i += n
		default:
			i++
		}
	}
	return keys
}

// decodeEscape decodes one ESC-prefixed sequence starting at data[0].
// Returns the number of bytes consumed (always >=1 once a leading ESC
// is confirmed) and the decoded key, which may be KeyNone for
// sequences this server doesn't act on (still consumed, so they don't
// get reinterpreted as raw text).
func decodeEscape(data []byte) (int, Key) {
	if len(data) < 2 || data[0] != 0x1b {
		return 1, Key{}
	}
	if data[1] != '[' {
		return 2, Key{}
	}
	if len(data) < 3 {
		return 2, Key{}
	}
	switch data[2] {
	case 'Z': // Shift-Tab: ESC [ Z
		return 3, Key{Kind: KeyShiftTab}
	case 'A':
		return 3, Key{Kind: KeyArrowUp}
	case 'B':
		return 3, Key{Kind: KeyArrowDown}
	case 'C':
		return 3, Key{Kind: KeyArrowRight}
	case 'D':
		return 3, Key{Kind: KeyArrowLeft}
	case '5':
		if len(data) >= 4 && data[3] == '~' {
			return 4, Key{Kind: KeyPageUp}
		}
		return 3, Key{}
	case '6':
		if len(data) >= 4 && data[3] == '~' {
			return 4, Key{Kind: KeyPageDown}
		}
		return 3, Key{}
	case '<':
		return decodeSGRMouse(data)
	default:
		return 3, Key{}
	}
}

// decodeSGRMouse decodes an SGR mouse-reporting sequence:
// ESC [ < Cb ; Cx ; Cy (M|m). Only left-button press ("M", button 0)
// is turned into a KeyMouseClick; everything else is consumed and
// ignored.
func decodeSGRMouse(data []byte) (int, Key) {
	// data[0:3] == "\x1b[<"
	i := 3
	readInt := func() (int, bool) {
		start := i
		for i < len(data) && data[i] >= '0' && data[i] <= '9' {
			i++
		}
		if i == start {
			return 0, false
		}
		n := 0
		for _, c := range data[start:i] {
			n = n*10 + int(c-'0')
		}
		return n, true
	}

	button, ok := readInt()
	if !ok || i >= len(data) || data[i] != ';' {
		return i + 1, Key{}
	}
	i++
	x, ok := readInt()
	if !ok || i >= len(data) || data[i] != ';' {
		return i + 1, Key{}
	}
	i++
	y, ok := readInt()
	if !ok || i >= len(data) {
		return i + 1, Key{}
	}
	final := data[i]
	i++
	if final != 'M' && final != 'm' {
		return i, Key{}
	}
	if final == 'm' || button != 0 {
		// button release, or any button other than the primary one.
		return i, Key{}
	}
	return i, Key{Kind: KeyMouseClick, X: x - 1, Y: y - 1}
}
