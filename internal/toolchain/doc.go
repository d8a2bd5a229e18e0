// Package toolchain drives the external Rust toolchain: `rustup target add`,
// `cargo build --release`, and the symbol stripper. Every invocation goes
// through a Runner as an argument vector, never through a shell, so tests
// substitute a fake Runner and inspect the exact commands issued.
package toolchain
