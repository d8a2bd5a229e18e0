// Package platform identifies the host a build runs on. Detection reads the
// running process's GOOS/GOARCH on every call so callers can substitute an
// injected Platform in tests or via the --platform flag.
package platform
