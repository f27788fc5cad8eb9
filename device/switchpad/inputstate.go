package switchpad

import (
	"errors"
	"fmt"
	"io"
)

// ErrInvalidDPad is returned when a decoded packet carries a hat code above DPadCenter.
var ErrInvalidDPad = errors.New("invalid dpad code")

// ChecksumError reports a packet whose trailing byte does not match the CRC of
// its payload.
type ChecksumError struct {
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("packet checksum mismatch: computed 0x%02x, packet carries 0x%02x", e.Want, e.Got)
}

// InputState is the logical content of one input packet.
type InputState struct {
	Buttons uint16
	DPad    DPad
	LX, LY  uint8
	RX, RY  uint8
	Vendor  uint8
}

// Neutral returns the "nothing pressed" state: no buttons, dpad centered,
// sticks at rest.
func Neutral() InputState {
	return InputState{
		DPad:   DPadCenter,
		LX:     AxisNeutral,
		LY:     AxisNeutral,
		RX:     AxisNeutral,
		RY:     AxisNeutral,
		Vendor: DefaultVendor,
	}
}

// NewInputState returns the neutral state with inputs applied.
func NewInputState(inputs ...Input) InputState {
	s := Neutral()
	s.Apply(inputs...)
	return s
}

// Apply presses buttons and sets the dpad. When several dpad directions are
// given the last one wins.
func (s *InputState) Apply(inputs ...Input) {
	for _, in := range inputs {
		if in != nil {
			in.apply(s)
		}
	}
}

// IsPressed reports whether every bit of b is set.
func (s *InputState) IsPressed(b Button) bool {
	return s.Buttons&uint16(b) == uint16(b)
}

// IsNeutral reports whether s equals the neutral state, vendor byte included.
func (s *InputState) IsNeutral() bool {
	return *s == Neutral()
}

// Inputs lists the pressed buttons in bit order followed by the dpad
// direction when it is not centered.
func (s *InputState) Inputs() []Input {
	var out []Input
	for _, b := range Buttons() {
		if s.IsPressed(b) {
			out = append(out, b)
		}
	}
	if s.DPad != DPadCenter {
		out = append(out, s.DPad)
	}
	return out
}

// MarshalBinary encodes the 9-byte wire packet, checksum included.
func (s *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, PacketSize)
	b[OffsetButtonsLSB] = uint8(s.Buttons)
	b[OffsetButtonsMSB] = uint8(s.Buttons >> 8)
	b[OffsetDPad] = uint8(s.DPad)
	b[OffsetLX] = s.LX
	b[OffsetLY] = s.LY
	b[OffsetRX] = s.RX
	b[OffsetRY] = s.RY
	b[OffsetVendor] = s.Vendor
	b[OffsetCRC] = CRC8(b[:PayloadSize])
	return b, nil
}

// UnmarshalBinary decodes a wire packet. The checksum is verified before any
// field of s is touched.
func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < PacketSize {
		return io.ErrUnexpectedEOF
	}
	if crc := CRC8(data[:PayloadSize]); crc != data[OffsetCRC] {
		return &ChecksumError{Want: crc, Got: data[OffsetCRC]}
	}
	dpad := DPad(data[OffsetDPad])
	if !dpad.Valid() {
		return fmt.Errorf("%w: 0x%02x", ErrInvalidDPad, data[OffsetDPad])
	}
	s.Buttons = uint16(data[OffsetButtonsLSB]) | uint16(data[OffsetButtonsMSB])<<8
	s.DPad = dpad
	s.LX = data[OffsetLX]
	s.LY = data[OffsetLY]
	s.RX = data[OffsetRX]
	s.RY = data[OffsetRY]
	s.Vendor = data[OffsetVendor]
	return nil
}

// String renders the state for logs, e.g. "A+B DPAD_R L(128,128) R(128,128)".
func (s *InputState) String() string {
	var names []byte
	for _, b := range Buttons() {
		if s.IsPressed(b) {
			if len(names) > 0 {
				names = append(names, '+')
			}
			names = append(names, b.String()...)
		}
	}
	if len(names) == 0 {
		names = append(names, '-')
	}
	return fmt.Sprintf("%s %s L(%d,%d) R(%d,%d)", names, s.DPad, s.LX, s.LY, s.RX, s.RY)
}
