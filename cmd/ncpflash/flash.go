package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/moffa90/go-ncpflash/bootloader"
	"github.com/moffa90/go-ncpflash/cp210x"
	"github.com/moffa90/go-ncpflash/firmware"
	"github.com/moffa90/go-ncpflash/internal/config"
	"github.com/moffa90/go-ncpflash/internal/logging"
	"github.com/moffa90/go-ncpflash/protocol"
)

// flashOptions are the flash command flags.
type flashOptions struct {
	port       string
	iface      int
	file       string
	configPath string
	noActivate bool
	logLevel   string
	logFormat  string
}

func (a *app) flash(ctx context.Context, args []string) int {
	var opts flashOptions

	fs := pflag.NewFlagSet("flash", pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVarP(&opts.port, "port", "p", "", "Serial port of the NCP")
	fs.IntVarP(&opts.iface, "interface", "i", -1, "Bridge interface wired to the NCP (0 = ECI, 1 = SCI)")
	fs.StringVarP(&opts.file, "file", "f", "", "GBL file to upload")
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	fs.BoolVar(&opts.noActivate, "no-activate", false, "Skip the GPIO bootloader activation")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(a.stderr, "flash: unexpected argument %q\n", fs.Arg(0))
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(a.stderr, "flash: %v\n", err)
		return exitUsage
	}
	applyFlags(cfg, fs, opts)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(a.stderr, "flash: %v\n", err)
		return exitUsage
	}
	if cfg.Port == "" {
		fmt.Fprintln(a.stderr, "flash: --port is required")
		return exitUsage
	}
	if opts.file == "" {
		fmt.Fprintln(a.stderr, "flash: --file is required")
		return exitUsage
	}
	mode, err := protocol.ParseChecksumMode(cfg.Checksum)
	if err != nil {
		fmt.Fprintf(a.stderr, "flash: %v\n", err)
		return exitUsage
	}

	logger, closeLog, err := logging.New(cfg.Logger, a.stderr)
	if err != nil {
		fmt.Fprintf(a.stderr, "flash: %v\n", err)
		return exitError
	}
	defer closeLog()

	if err := inspectImage(logger, opts.file); err != nil {
		fmt.Fprintf(a.stderr, "flash: %v\n", err)
		return exitError
	}

	if cfg.Activate {
		fmt.Fprintln(a.stdout, "Restarting NCP into bootloader mode...")
		if err := a.activate(ctx, logger, cfg.Interface); err != nil {
			fmt.Fprintf(a.stderr, "flash: bootloader activation failed: %v\n", err)
			return exitError
		}
	}

	view := newProgressView(a.stdout, a.isTerminal(a.stdout))
	fl := bootloader.New(
		bootloader.WithLogger(logger),
		bootloader.WithProgressCallback(view.update),
		bootloader.WithSentinelTimeout(cfg.Timeouts.Sentinel),
		bootloader.WithLineTimeout(cfg.Timeouts.Line),
		bootloader.WithAckTimeout(cfg.Timeouts.Ack),
		bootloader.WithChecksumMode(mode),
		bootloader.WithPortOpener(a.openPort),
	)

	err = fl.Flash(ctx, cfg.Port, opts.file)
	view.finish()
	if err != nil {
		var hsErr *bootloader.HandshakeError
		if errors.As(err, &hsErr) {
			fmt.Fprintln(a.stderr, "flash: failed to restart into bootloader mode, check the wiring and --interface")
		}
		fmt.Fprintf(a.stderr, "flash: %v\n", err)
		return exitError
	}

	fmt.Fprintln(a.stdout, "Finished! Rebooting NCP...")
	return exitOK
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, opts flashOptions) {
	if fs.Changed("port") {
		cfg.Port = opts.port
	}
	if fs.Changed("interface") {
		cfg.Interface = opts.iface
	}
	if opts.noActivate {
		cfg.Activate = false
	}
	if fs.Changed("log-level") {
		cfg.Logger.Level = opts.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logger.Format = opts.logFormat
	}
}

// inspectImage rejects unusable files before any hardware is touched and
// warns about images without a GBL header.
func inspectImage(logger *slog.Logger, path string) error {
	img, err := firmware.Open(path)
	if err != nil {
		return err
	}
	defer img.Close()

	if !img.IsGBL() {
		logger.Warn("file does not start with a GBL header, uploading anyway", "file", path)
	}
	logger.Debug("firmware image", "image", img.String(), "blocks", img.Blocks())
	return nil
}

func (a *app) activate(ctx context.Context, logger *slog.Logger, iface int) error {
	bus, closeBus, err := a.newBus()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBus(); err != nil {
			logger.Error("close usb", "error", err)
		}
	}()

	act := cp210x.New(bus, cp210x.WithLogger(logger))
	return act.Activate(ctx, cp210x.DefaultSelector(iface))
}
