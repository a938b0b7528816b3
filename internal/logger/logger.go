// Package logger provides stderr logging for sentiscope commands.
// Debug, Info and Warn print only in verbose mode; Error and progress lines always print.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Output returns the current writer
func Output() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}

func printGated(prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, prefix+format+"\n", args...)
	}
}

func printAlways(prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printGated("[DEBUG] ", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printGated("[INFO] ", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	printGated("[WARN] ", format, args...)
}

// Error always prints.
func Error(format string, args ...any) {
	printAlways("[ERROR] ", format, args...)
}

// Success prints a ✓ progress line.
func Success(format string, args ...any) {
	printAlways("✓ ", format, args...)
}

// Failure prints a ✗ progress line.
func Failure(format string, args ...any) {
	printAlways("✗ ", format, args...)
}

// Banner prints a ═══ framed section title.
func Banner(title string) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "\n═══════════════════════════════════════════════════\n")
	fmt.Fprintf(output, "  %s\n", title)
	fmt.Fprintf(output, "═══════════════════════════════════════════════════\n")
}
