package bridge

import "bytes"

// DisplaySentinel prefixes display text on the wire. With at least one text
// byte behind it a display write is always longer than an input packet, and
// the firmware recognises it by these exact nine leading digits.
const DisplaySentinel = "123456789"

// EncodeDisplayText returns the wire form of a display write. Empty text is
// sent as a single space because the firmware needs a non-empty payload.
func EncodeDisplayText(text string) ([]byte, error) {
	if text == "" {
		text = " "
	}
	for i := 0; i < len(text); i++ {
		if text[i] > 0x7F {
			return nil, ErrNonASCII
		}
	}
	out := make([]byte, 0, len(DisplaySentinel)+len(text))
	out = append(out, DisplaySentinel...)
	out = append(out, text...)
	return out, nil
}

// IsDisplayFrame reports whether b starts with the display sentinel.
func IsDisplayFrame(b []byte) bool {
	return bytes.HasPrefix(b, []byte(DisplaySentinel))
}
