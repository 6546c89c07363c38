//go:build !windows

package mcp

import (
	"os"
	"syscall"
)

// shutdownSignals lists the signals that stop the server. Unix gets
// SIGTERM on top of Ctrl+C so process managers can stop it cleanly.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
