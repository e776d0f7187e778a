package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// statusLine renders one "label: [OK] detail" line, colorized for terminals.
func statusLine(label string, ok bool, detail string, colorize bool) string {
	verdict := "OK"
	color := ansiGreen
	if !ok {
		verdict = "ERROR"
		color = ansiRed
	}
	line := fmt.Sprintf("  %-16s [%s]", label+":", verdict)
	if detail != "" {
		line += " " + detail
	}
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
