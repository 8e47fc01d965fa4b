package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusPrinter renders the aligned label/status lines the status and
// health commands share, colored when the destination is a terminal.
type statusPrinter struct {
	out      io.Writer
	colorize bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, colorize: writerIsTerminal(out)}
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusLabelWidth keeps the bracketed status column aligned across lines.
const statusLabelWidth = 20

func (p *statusPrinter) section(title string) {
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	if p.colorize {
		header = ansiBlue + header + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	fmt.Fprintln(p.out, header)
	fmt.Fprintln(p.out, rule)
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	status := "[" + kind.text() + "]"
	if message != "" {
		status += " " + message
	}
	rendered := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
	if p.colorize {
		if color := kind.color(); color != "" {
			rendered = color + rendered + ansiReset
		}
	}
	fmt.Fprintln(p.out, rendered)
}

func (p *statusPrinter) blank() {
	fmt.Fprintln(p.out)
}

func (k statusKind) text() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (k statusKind) color() string {
	switch k {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func writerIsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
