package cp210x

import (
	"fmt"

	"github.com/google/gousb"
)

// USBBus is a Bus backed by libusb through gousb.
type USBBus struct {
	ctx *gousb.Context
}

// NewUSBBus initializes a libusb context. Close it when done.
func NewUSBBus() *USBBus {
	return &USBBus{ctx: gousb.NewContext()}
}

// Close releases the libusb context.
func (b *USBBus) Close() error {
	return b.ctx.Close()
}

// Open opens the first attached device accepted by match and closes any
// other matching device.
func (b *USBBus) Open(match func(vid, pid uint16) bool) (Device, error) {
	devs, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return match(uint16(desc.Vendor), uint16(desc.Product))
	})
	if len(devs) == 0 {
		// OpenDevices reports per-device open failures alongside the
		// devices it did open; only fail when nothing usable came back.
		if err != nil {
			return nil, err
		}
		return nil, nil
	}
	for _, extra := range devs[1:] {
		_ = extra.Close()
	}

	return &usbDevice{dev: devs[0]}, nil
}

// usbDevice adapts *gousb.Device to Device.
type usbDevice struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
}

func (d *usbDevice) VendorID() uint16  { return uint16(d.dev.Desc.Vendor) }
func (d *usbDevice) ProductID() uint16 { return uint16(d.dev.Desc.Product) }

func (d *usbDevice) Claim(iface int) error {
	if err := d.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("set auto detach: %w", err)
	}

	num, err := d.dev.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("get active config: %w", err)
	}
	cfg, err := d.dev.Config(num)
	if err != nil {
		return fmt.Errorf("select config %d: %w", num, err)
	}
	intf, err := cfg.Interface(iface, 0)
	if err != nil {
		_ = cfg.Close()
		return fmt.Errorf("claim interface %d: %w", iface, err)
	}

	d.cfg = cfg
	d.intf = intf
	return nil
}

func (d *usbDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	return d.dev.Control(rType, request, val, idx, data)
}

func (d *usbDevice) Close() error {
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.cfg != nil {
		_ = d.cfg.Close()
		d.cfg = nil
	}
	return d.dev.Close()
}
