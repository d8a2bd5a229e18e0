// Package target maps a host platform to the build target used for a
// release build. The mapping is an embedded YAML table, validated against
// an embedded JSON schema on first use, with one entry per supported
// (OS, architecture) pair. Unlisted pairs fail closed with
// ErrUnsupportedPlatform.
package target
