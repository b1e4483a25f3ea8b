package main

import (
	"fmt"
	"os"
)

// ANSI escapes for terminal output. Suppressed by --no-color or NO_COLOR.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorEnabled() bool {
	if noColor {
		return false
	}
	_, set := os.LookupEnv("NO_COLOR")
	return !set
}

func colorize(color, text string) string {
	if !colorEnabled() {
		return text
	}
	return color + text + colorReset
}

func printMarked(color, mark, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printMarked(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { printMarked(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { printMarked(colorYellow, "⚠", format, args...) }

// printStatus renders one "label: value" line of the status report.
func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), val)
}
