// Package cp210x puts a target MCU into its bootloader by toggling the GPIO
// latch of a Silicon Labs CP210x USB-to-UART bridge.
//
// The bridge GPIO0 is wired to the target nRESET and GPIO1 to its bootloader
// activation pin. Activate drives both low, releases reset while the
// activation pin is still held, then releases it, using three vendor
// control transfers.
//
// Supported bridges:
//   - CP2102N, CP2103, CP2104 (PID 0xEA60): mask and value packed in wIndex
//   - CP2105 (PID 0xEA70): 2-byte payload on the selected interface (0 or 1)
//   - CP2108 (PID 0xEA71): 4-byte 16-bit payload on interface 0
//
// Basic usage:
//
//	bus := cp210x.NewUSBBus()
//	defer bus.Close()
//
//	act := cp210x.New(bus)
//	if err := act.Activate(ctx, cp210x.DefaultSelector(cp210x.InterfaceECI)); err != nil {
//	    log.Fatal(err)
//	}
//
// Tests and tools that do not talk to real hardware can implement Bus and
// Device themselves.
package cp210x
