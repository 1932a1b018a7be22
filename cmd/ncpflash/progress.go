package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/moffa90/go-ncpflash/bootloader"
)

// progressView renders upload progress: a redrawn bar on a terminal, one
// line per phase otherwise.
type progressView struct {
	w     io.Writer
	tty   bool
	bar   progress.Model
	phase string
	drawn bool
}

func newProgressView(w io.Writer, tty bool) *progressView {
	return &progressView{
		w:   w,
		tty: tty,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (v *progressView) update(p bootloader.Progress) {
	if p.Phase != v.phase {
		v.phase = p.Phase
		if !v.tty {
			v.phaseLine(p)
		}
	}

	if v.tty && p.Phase == bootloader.PhaseTransferring && p.TotalBlocks > 0 {
		fmt.Fprintf(v.w, "\r%s %d/%d blocks", v.bar.ViewAs(p.Percentage/100), p.Block, p.TotalBlocks)
		v.drawn = true
	}
}

func (v *progressView) phaseLine(p bootloader.Progress) {
	switch p.Phase {
	case bootloader.PhaseHandshake:
		fmt.Fprintln(v.w, "Waiting for bootloader menu...")
	case bootloader.PhaseTransferring:
		fmt.Fprintf(v.w, "Bootloader ready, uploading %d blocks...\n", p.TotalBlocks)
	case bootloader.PhaseRebooting:
		fmt.Fprintln(v.w, "Upload complete.")
	}
}

// finish ends a redrawn bar line.
func (v *progressView) finish() {
	if v.drawn {
		fmt.Fprintln(v.w)
		v.drawn = false
	}
}
