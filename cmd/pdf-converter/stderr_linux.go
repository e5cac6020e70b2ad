//go:build linux

package main

import (
	"golang.org/x/sys/unix"

	"github.com/spherical/pdf-converter/internal/observability"
)

// silenceStderr points file descriptor 2 away from the caller's stderr so
// MuPDF warnings cannot leak into it. The returned func restores it.
func silenceStderr(logFile string, logger *observability.Logger) func() {
	target, err := stderrTarget(logFile)
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot open stderr redirect target")
		return func() {}
	}

	saved, err := unix.Dup(unix.Stderr)
	if err != nil {
		target.Close()
		logger.Warn().Err(err).Msg("Cannot duplicate stderr")
		return func() {}
	}

	if err := unix.Dup3(int(target.Fd()), unix.Stderr, 0); err != nil {
		unix.Close(saved)
		target.Close()
		logger.Warn().Err(err).Msg("Cannot redirect stderr")
		return func() {}
	}

	return func() {
		if err := unix.Dup3(saved, unix.Stderr, 0); err != nil {
			logger.Error().Err(err).Msg("Cannot restore stderr")
		}
		unix.Close(saved)
		target.Close()
	}
}
