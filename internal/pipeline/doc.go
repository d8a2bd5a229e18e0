// Package pipeline runs a release build end to end:
//
//	resolve target → install target → build → strip → report size
//
// Each stage runs only if the previous one succeeded. The pipeline keeps no
// state of its own; everything it changes on disk is owned by the toolchain.
package pipeline
