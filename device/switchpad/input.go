// Package switchpad implements the input packet format understood by the
// serial gamepad bridge: a 16-bit button mask, a hat switch code, four
// analog axes, a vendor byte and a CRC-8 over the preceding bytes.
package switchpad

import (
	"fmt"
	"math/bits"
	"strings"
)

// Input is a single logical control: either a Button or a DPad direction.
// The set of implementations is closed.
type Input interface {
	fmt.Stringer
	apply(s *InputState)
}

// Button is one bit of the 16-bit button mask. Combined masks are valid
// values for InputState.Buttons but not for Input.
type Button uint16

// DPad is a hat switch code. Only one direction is active per packet.
type DPad uint8

// UnknownInputError is returned when an input name is neither a button nor a
// dpad direction.
type UnknownInputError struct {
	Name string
}

func (e *UnknownInputError) Error() string {
	return fmt.Sprintf("unknown input name: %q", e.Name)
}

func (b Button) String() string {
	if bits.OnesCount16(uint16(b)) != 1 {
		return fmt.Sprintf("Button(0x%04x)", uint16(b))
	}
	return buttonNames[bits.TrailingZeros16(uint16(b))]
}

func (b Button) apply(s *InputState) { s.Buttons |= uint16(b) }

func (d DPad) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DPad(0x%02x)", uint8(d))
	}
	return DPadPrefix + dpadNames[d]
}

// Valid reports whether d is one of the nine defined hat codes.
func (d DPad) Valid() bool { return d <= DPadCenter }

func (d DPad) apply(s *InputState) { s.DPad = d }

// Buttons returns the sixteen buttons in bit order.
func Buttons() []Button {
	out := make([]Button, len(buttonNames))
	for i := range buttonNames {
		out[i] = Button(1 << i)
	}
	return out
}

// DPads returns the nine dpad directions in code order.
func DPads() []DPad {
	out := make([]DPad, len(dpadNames))
	for i := range dpadNames {
		out[i] = DPad(i)
	}
	return out
}

// ParseInput resolves a case-insensitive input name. Buttons use their plain
// name ("A", "L_CLK"); dpad directions carry the DPAD_ prefix ("DPAD_UR").
func ParseInput(name string) (Input, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if dir, ok := strings.CutPrefix(n, DPadPrefix); ok {
		for i, dn := range dpadNames {
			if dn == dir {
				return DPad(i), nil
			}
		}
		return nil, &UnknownInputError{Name: name}
	}
	for i, bn := range buttonNames {
		if bn == n {
			return Button(1 << i), nil
		}
	}
	return nil, &UnknownInputError{Name: name}
}

// ParseInputs resolves every name or returns the first failure; it never
// returns a partial list.
func ParseInputs(names ...string) ([]Input, error) {
	out := make([]Input, 0, len(names))
	for _, name := range names {
		in, err := ParseInput(name)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}
