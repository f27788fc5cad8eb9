package switchpad

// PacketSize is the length of an input packet on the bridge wire, checksum included.
const PacketSize = 9

// PayloadSize is the number of packet bytes covered by the checksum.
const PayloadSize = PacketSize - 1

const (
	OffsetButtonsLSB = 0
	OffsetButtonsMSB = 1
	OffsetDPad       = 2
	OffsetLX         = 3
	OffsetLY         = 4
	OffsetRX         = 5
	OffsetRY         = 6
	OffsetVendor     = 7
	OffsetCRC        = 8
)

// Button bits, bit 0 = MINUS ... bit 15 = ZR.
const (
	ButtonMinus   Button = 1 << 0
	ButtonPlus    Button = 1 << 1
	ButtonLClick  Button = 1 << 2
	ButtonRClick  Button = 1 << 3
	ButtonHome    Button = 1 << 4
	ButtonCapture Button = 1 << 5
	ButtonSL      Button = 1 << 6
	ButtonSR      Button = 1 << 7

	ButtonY  Button = 1 << 8
	ButtonB  Button = 1 << 9
	ButtonA  Button = 1 << 10
	ButtonX  Button = 1 << 11
	ButtonL  Button = 1 << 12
	ButtonR  Button = 1 << 13
	ButtonZL Button = 1 << 14
	ButtonZR Button = 1 << 15
)

// Hat switch codes.
const (
	DPadUp        DPad = 0x00
	DPadUpRight   DPad = 0x01
	DPadRight     DPad = 0x02
	DPadDownRight DPad = 0x03
	DPadDown      DPad = 0x04
	DPadDownLeft  DPad = 0x05
	DPadLeft      DPad = 0x06
	DPadUpLeft    DPad = 0x07
	DPadCenter    DPad = 0x08
)

const (
	AxisMin     uint8 = 0
	AxisNeutral uint8 = 128
	AxisMax     uint8 = 255
)

// DefaultVendor is the vendor byte sent when the caller does not set one.
const DefaultVendor uint8 = 0x00

// DPadPrefix marks dpad directions in textual input names ("DPAD_R" vs button "R").
const DPadPrefix = "DPAD_"

var buttonNames = [16]string{
	"MINUS", "PLUS", "L_CLK", "R_CLK", "HOME", "CAPTURE", "SL", "SR",
	"Y", "B", "A", "X", "L", "R", "ZL", "ZR",
}

var dpadNames = [9]string{
	DPadUp:        "U",
	DPadUpRight:   "UR",
	DPadRight:     "R",
	DPadDownRight: "DR",
	DPadDown:      "D",
	DPadDownLeft:  "DL",
	DPadLeft:      "L",
	DPadUpLeft:    "UL",
	DPadCenter:    "CENTER",
}
