package cp210x

import "fmt"

// USB identifiers.
const (
	// VendorSiliconLabs is the Silicon Labs USB vendor ID
	VendorSiliconLabs = 0x10C4

	// ProductCP210x is shared by CP2102N, CP2103 and CP2104
	ProductCP210x = 0xEA60

	// ProductCP2105 is the dual-interface CP2105 (ECI + SCI)
	ProductCP2105 = 0xEA70

	// ProductCP2108 is the quad-interface CP2108
	ProductCP2108 = 0xEA71
)

// Latch write control request, vendor-specific per AN571.
const (
	// RequestTypeOut is host-to-device | vendor | interface recipient
	RequestTypeOut = 0x41

	// RequestVendorSpecific is the bRequest for CP210x vendor commands
	RequestVendorSpecific = 0xFF

	// ValueWriteLatch selects the GPIO latch write command
	ValueWriteLatch = 0x37E1
)

// GPIO line masks. Both lines are active low on the target.
const (
	// LineReset is GPIO0, wired to nRESET
	LineReset = 0x01

	// LineBoot is GPIO1, wired to the bootloader activation pin (nBOOT)
	LineBoot = 0x02
)

// Interface indexes of the dual-interface bridge.
const (
	// NoInterface means no interface was selected
	NoInterface = -1

	// InterfaceECI is the Enhanced Communication Interface of the CP2105
	InterfaceECI = 0

	// InterfaceSCI is the Standard Communication Interface of the CP2105
	InterfaceSCI = 1
)

// LatchCommand is a GPIO latch write. Lines whose bit is clear in Mask keep
// their current state; Value gives the new level of the masked lines.
type LatchCommand struct {
	Mask  uint16
	Value uint16
}

func (c LatchCommand) String() string {
	return fmt.Sprintf("mask=0x%02X value=0x%02X", c.Mask, c.Value)
}

// Encoding maps a latch command onto the wIndex and data stage of the
// control transfer. The set of encodings is closed: IndexEncoding,
// PayloadEncoding and WidePayloadEncoding.
type Encoding interface {
	// Encode returns the wIndex field and the data stage for cmd sent on
	// interface iface.
	Encode(cmd LatchCommand, iface int) (wIndex uint16, payload []byte)

	// RequiresInterface reports whether the caller must select an
	// interface before any transfer is issued.
	RequiresInterface() bool

	// Width is the number of GPIO bits the encoding can address.
	Width() int

	sealed()
}

// IndexEncoding packs mask and value into wIndex with no data stage:
// wIndex = mask | value<<8. Used by single-interface bridges.
type IndexEncoding struct{}

func (IndexEncoding) Encode(cmd LatchCommand, _ int) (uint16, []byte) {
	return uint16(byte(cmd.Mask)) | uint16(byte(cmd.Value))<<8, nil
}

func (IndexEncoding) RequiresInterface() bool { return false }
func (IndexEncoding) Width() int              { return 8 }
func (IndexEncoding) sealed()                 {}

// PayloadEncoding sends [mask, value] as a 2-byte data stage addressed to
// the selected interface. Used by the dual-interface CP2105, whose two
// interfaces have independent GPIO banks.
type PayloadEncoding struct{}

func (PayloadEncoding) Encode(cmd LatchCommand, iface int) (uint16, []byte) {
	return uint16(iface), []byte{byte(cmd.Mask), byte(cmd.Value)}
}

func (PayloadEncoding) RequiresInterface() bool { return true }
func (PayloadEncoding) Width() int              { return 8 }
func (PayloadEncoding) sealed()                 {}

// WidePayloadEncoding sends a 16-bit mask and 16-bit value, little-endian,
// on interface 0. Used by the CP2108 whose GPIO latch spans all four
// interfaces.
type WidePayloadEncoding struct{}

func (WidePayloadEncoding) Encode(cmd LatchCommand, _ int) (uint16, []byte) {
	return 0, []byte{
		byte(cmd.Mask), byte(cmd.Mask >> 8),
		byte(cmd.Value), byte(cmd.Value >> 8),
	}
}

func (WidePayloadEncoding) RequiresInterface() bool { return false }
func (WidePayloadEncoding) Width() int              { return 16 }
func (WidePayloadEncoding) sealed()                 {}

// Bridge describes a supported bridge chip.
type Bridge struct {
	Name      string
	ProductID uint16
	Encoding  Encoding
}

// bridges classifies supported product IDs. New compatible chips only need
// a row here.
var bridges = map[uint16]Bridge{
	ProductCP210x: {Name: "CP2102N/CP2103/CP2104", ProductID: ProductCP210x, Encoding: IndexEncoding{}},
	ProductCP2105: {Name: "CP2105", ProductID: ProductCP2105, Encoding: PayloadEncoding{}},
	ProductCP2108: {Name: "CP2108", ProductID: ProductCP2108, Encoding: WidePayloadEncoding{}},
}

// Classify returns the bridge description for a Silicon Labs product ID.
func Classify(pid uint16) (Bridge, bool) {
	b, ok := bridges[pid]
	return b, ok
}

// SupportedProducts returns the supported product IDs in ascending order.
func SupportedProducts() []uint16 {
	return []uint16{ProductCP210x, ProductCP2105, ProductCP2108}
}

// ActivationSequence returns the three latch writes that reset the target
// into its bootloader, with the settle delay that follows each one:
//
//  1. drive nRESET and nBOOT low   (30 ms)
//  2. release nRESET, keep nBOOT   (100 ms)
//  3. release nBOOT
func ActivationSequence() []Step {
	both := uint16(LineReset | LineBoot)
	return []Step{
		{Name: "assert reset and boot", Command: LatchCommand{Mask: both, Value: ^both & 0xFF}, Settle: ResetSettle},
		{Name: "release reset", Command: LatchCommand{Mask: LineReset, Value: LineReset}, Settle: BootSettle},
		{Name: "release boot", Command: LatchCommand{Mask: LineBoot, Value: LineBoot}},
	}
}
