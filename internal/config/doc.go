// Package config manages relbuild settings. Values come from, in increasing
// precedence: built-in defaults, the user file at ~/.relbuild/config.yaml,
// the project file relbuild.yaml in the source tree root, and RELBUILD_*
// environment variables. Command-line flags override all of them.
package config
