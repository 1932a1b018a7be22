// Command ncpflash forces a network co-processor behind a CP210x USB bridge
// into its Gecko bootloader and uploads a GBL image over XMODEM.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/moffa90/go-ncpflash/cp210x"
	"github.com/moffa90/go-ncpflash/serialport"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line against real hardware and returns the
// process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout:     stdout,
		stderr:     stderr,
		newBus:     openUSBBus,
		openPort:   serialport.Open,
		scan:       serialport.Scan,
		isTerminal: isTerminal,
	}
	return a.run(ctx, args)
}

// app carries the collaborators of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// newBus opens the USB bus; the returned func releases it
	newBus func() (cp210x.Bus, func() error, error)

	openPort   func(name string) (serialport.Port, error)
	scan       func(vid uint16) ([]serialport.PortInfo, error)
	isTerminal func(w io.Writer) bool
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.usage(a.stderr)
		return exitUsage
	}

	switch args[0] {
	case "flash":
		return a.flash(ctx, args[1:])
	case "scan":
		return a.scanPorts(args[1:])
	case "version", "--version":
		fmt.Fprintf(a.stdout, "ncpflash %s\n", version)
		return exitOK
	case "help", "--help", "-h":
		a.usage(a.stdout)
		return exitOK
	default:
		fmt.Fprintf(a.stderr, "unknown command: %s\n\n", args[0])
		a.usage(a.stderr)
		return exitUsage
	}
}

func (a *app) usage(w io.Writer) {
	fmt.Fprint(w, `ncpflash - upload firmware to an NCP through its Gecko bootloader

USAGE:
    ncpflash flash -p PORT -f FILE [-i INTERFACE] [FLAGS]
    ncpflash scan
    ncpflash version

COMMANDS:
    flash     Restart the NCP into its bootloader and upload a GBL image
    scan      List serial ports of attached Silicon Labs bridges
    version   Print the version

Run 'ncpflash flash --help' for flash flags.

CONFIGURATION:
    --config PATH selects a YAML file; NCPFLASH_PORT, NCPFLASH_INTERFACE
    and NCPFLASH_LOG_LEVEL override it; flags override both.
`)
}

func (a *app) scanPorts(args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(a.stderr, "scan takes no arguments\n")
		return exitUsage
	}

	ports, err := a.scan(cp210x.VendorSiliconLabs)
	if err != nil {
		fmt.Fprintf(a.stderr, "scan: %v\n", err)
		return exitError
	}
	if len(ports) == 0 {
		fmt.Fprintln(a.stderr, "no Silicon Labs serial ports found")
		return exitOK
	}
	if err := serialport.WriteTable(a.stdout, ports); err != nil {
		fmt.Fprintf(a.stderr, "scan: %v\n", err)
		return exitError
	}
	return exitOK
}

func openUSBBus() (cp210x.Bus, func() error, error) {
	bus := cp210x.NewUSBBus()
	return bus, bus.Close, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
