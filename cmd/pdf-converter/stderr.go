package main

import "os"

// stderrTarget opens the file native library output is sent to while
// converting: the log file when one is configured, otherwise the null device.
func stderrTarget(logFile string) (*os.File, error) {
	if logFile != "" {
		return os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
	return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
}
