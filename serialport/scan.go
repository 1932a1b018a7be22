package serialport

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a USB serial port found by Scan.
type PortInfo struct {
	// Path is the OS device path (e.g. /dev/ttyUSB0, COM3)
	Path string

	// Description is the USB product string
	Description string

	// HardwareID is "USB VID:PID=XXXX:XXXX SER=..." as printed by most
	// serial tooling
	HardwareID string
}

// Scan lists the serial ports that belong to USB devices with the given
// vendor ID.
func Scan(vid uint16) ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return FilterPorts(ports, vid), nil
}

// FilterPorts keeps the USB ports whose vendor ID equals vid, preserving
// enumeration order.
func FilterPorts(ports []*enumerator.PortDetails, vid uint16) []PortInfo {
	var out []PortInfo
	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}
		portVID, ok := parseID(p.VID)
		if !ok || portVID != vid {
			continue
		}
		pid, _ := parseID(p.PID)

		out = append(out, PortInfo{
			Path:        p.Name,
			Description: description(p),
			HardwareID:  hardwareID(portVID, pid, p.SerialNumber),
		})
	}
	return out
}

// WriteTable prints one port per line: path, description, hardware ID.
func WriteTable(w io.Writer, ports []PortInfo) error {
	for _, p := range ports {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", p.Path, p.Description, p.HardwareID); err != nil {
			return err
		}
	}
	return nil
}

func parseID(s string) (uint16, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

func description(p *enumerator.PortDetails) string {
	if p.Product != "" {
		return p.Product
	}
	return "n/a"
}

func hardwareID(vid, pid uint16, serialNumber string) string {
	id := fmt.Sprintf("USB VID:PID=%04X:%04X", vid, pid)
	if serialNumber != "" {
		id += " SER=" + serialNumber
	}
	return id
}
