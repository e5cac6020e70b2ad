//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package main

import "github.com/spherical/pdf-converter/internal/observability"

// silenceStderr is a no-op where descriptors cannot be re-pointed.
func silenceStderr(string, *observability.Logger) func() {
	return func() {}
}
