package kcp

import "fmt"

// OK formats a successful response (§6.1).
func OK() string {
	return "OK\n"
}

// Error formats a failed response with a single simple-string reason.
func Error(reason string) string {
	return fmt.Sprintf("ERROR %s\n", reason)
}
