package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusOK statusKind = iota
	statusWarn
	statusError
)

func (k statusKind) String() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

func (k statusKind) ansi() string {
	switch k {
	case statusOK:
		return "\x1b[32m"
	case statusWarn:
		return "\x1b[33m"
	default:
		return "\x1b[31m"
	}
}

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
)

// statusPrinter writes labelled status lines, colored only when out is a
// terminal.
type statusPrinter struct {
	out   io.Writer
	color bool
}

func newStatusPrinter(out io.Writer) statusPrinter {
	return statusPrinter{out: out, color: isTerminal(out)}
}

// line prints "  label:   [KIND] message" with the label padded to a
// fixed column.
func (p statusPrinter) line(label string, kind statusKind, message string) {
	text := fmt.Sprintf("  %-18s [%s]", label+":", kind)
	if message != "" {
		text += " " + message
	}
	if p.color {
		text = kind.ansi() + text + ansiReset
	}
	fmt.Fprintln(p.out, text)
}

func (p statusPrinter) section(title string) {
	text := strings.TrimSpace(title)
	if p.color {
		text = ansiBold + text + ansiReset
	}
	fmt.Fprintln(p.out, text)
}

// isTerminal reports whether writer is an interactive terminal. Buffers and
// pipes never are, which keeps colors and progress bars out of redirected
// output.
func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
