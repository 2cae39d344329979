// Package stacktrace shortens runtime stack traces for log output.
package stacktrace

import "strings"

// InternalPaths returns the "internal/...go:line" locations found in a raw
// stack trace as produced by runtime/debug.Stack.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)

		_, rest, found := strings.Cut(line, "/internal/")
		if !found || !strings.Contains(rest, ".go:") {
			continue
		}

		loc, _, _ := strings.Cut(rest, " ")
		paths = append(paths, "internal/"+loc)
	}
	return paths
}
