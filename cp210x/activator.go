package cp210x

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Settle delays between latch writes.
const (
	// ResetSettle follows the write that drives both lines low
	ResetSettle = 30 * time.Millisecond

	// BootSettle follows the write that releases nRESET; the target samples
	// nBOOT while leaving reset
	BootSettle = 100 * time.Millisecond
)

// Step is one latch write of the activation sequence.
type Step struct {
	Name    string
	Command LatchCommand
	Settle  time.Duration
}

// Device is an opened USB device.
type Device interface {
	// VendorID and ProductID identify the device
	VendorID() uint16
	ProductID() uint16

	// Claim detaches the kernel driver if needed and claims interface iface
	Claim(iface int) error

	// Control issues a control transfer
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)

	// Close releases the claimed interface and the device
	Close() error
}

// Bus enumerates attached USB devices.
type Bus interface {
	// Open opens the first attached device accepted by match.
	// It returns a nil Device and nil error when nothing matches.
	Open(match func(vid, pid uint16) bool) (Device, error)
}

// Selector chooses which attached bridge to activate.
type Selector struct {
	// VendorID the device must report
	VendorID uint16

	// ProductIDs allowed; each must also be a supported bridge
	ProductIDs []uint16

	// Interface is the serial channel of a dual-interface bridge, or
	// NoInterface
	Interface int
}

// DefaultSelector selects any supported Silicon Labs bridge.
func DefaultSelector(iface int) Selector {
	return Selector{
		VendorID:   VendorSiliconLabs,
		ProductIDs: SupportedProducts(),
		Interface:  iface,
	}
}

// Activator drives the bridge GPIO latch to start the target bootloader.
//
// Activator is not safe for concurrent use; the sequence is inherently
// serial.
type Activator struct {
	bus    Bus
	config Config
}

// New creates an Activator that enumerates devices on bus.
//
// Example:
//
//	bus := cp210x.NewUSBBus()
//	defer bus.Close()
//
//	act := cp210x.New(bus, cp210x.WithLogger(slog.Default()))
//	err := act.Activate(ctx, cp210x.DefaultSelector(cp210x.InterfaceECI))
func New(bus Bus, opts ...Option) *Activator {
	if bus == nil {
		panic("bus cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Activator{
		bus:    bus,
		config: cfg,
	}
}

// Activate finds the bridge and runs the activation sequence:
//  1. Find the first device matching sel and the supported bridge table
//  2. Validate the interface for dual-interface bridges
//  3. Issue the three latch writes with their settle delays
//
// A failed transfer aborts immediately with a *TransportError; the target
// may be left with its lines in an intermediate state and the whole
// sequence has to be run again.
func (a *Activator) Activate(ctx context.Context, sel Selector) error {
	dev, err := a.bus.Open(func(vid, pid uint16) bool {
		if vid != sel.VendorID || !slices.Contains(sel.ProductIDs, pid) {
			return false
		}
		_, ok := Classify(pid)
		return ok
	})
	if err != nil {
		return &TransportError{Op: "open device", Err: err}
	}
	if dev == nil {
		return ErrDeviceNotFound
	}
	defer func() {
		if err := dev.Close(); err != nil {
			a.logError("close device", "error", err)
		}
	}()

	bridge, ok := Classify(dev.ProductID())
	if !ok {
		return ErrDeviceNotFound
	}
	a.logInfo("found bridge",
		"bridge", bridge.Name,
		"vid", fmt.Sprintf("0x%04X", dev.VendorID()),
		"pid", fmt.Sprintf("0x%04X", dev.ProductID()),
	)

	iface, err := resolveInterface(bridge, sel.Interface)
	if err != nil {
		return err
	}

	if err := dev.Claim(iface); err != nil {
		return &TransportError{Op: fmt.Sprintf("claim interface %d", iface), Err: err}
	}

	return a.run(ctx, dev, bridge, iface)
}

// run issues the latch writes in order.
func (a *Activator) run(ctx context.Context, dev Device, bridge Bridge, iface int) error {
	for i, step := range ActivationSequence() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		wIndex, payload := bridge.Encoding.Encode(step.Command, iface)
		a.logDebug(step.Name,
			"step", i+1,
			"latch", step.Command.String(),
			"wIndex", fmt.Sprintf("0x%04X", wIndex),
			"payload", fmt.Sprintf("% X", payload),
		)

		if _, err := dev.Control(RequestTypeOut, RequestVendorSpecific, ValueWriteLatch, wIndex, payload); err != nil {
			return &TransportError{
				Op:      "write latch",
				Step:    i + 1,
				Command: step.Command,
				Err:     err,
			}
		}

		if step.Settle > 0 {
			a.config.Sleep(step.Settle)
		}
	}

	a.logInfo("bootloader activation sequence complete", "bridge", bridge.Name, "interface", iface)
	return nil
}

// resolveInterface validates the requested interface against the bridge.
func resolveInterface(bridge Bridge, iface int) (int, error) {
	if !bridge.Encoding.RequiresInterface() {
		return 0, nil
	}
	if iface == NoInterface {
		return 0, ErrInterfaceRequired
	}
	if iface != InterfaceECI && iface != InterfaceSCI {
		return 0, &InvalidInterfaceError{Bridge: bridge.Name, Interface: iface}
	}
	return iface, nil
}

// logDebug logs a debug message if a logger is configured.
func (a *Activator) logDebug(msg string, keysAndValues ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (a *Activator) logInfo(msg string, keysAndValues ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (a *Activator) logError(msg string, keysAndValues ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Error(msg, keysAndValues...)
	}
}
