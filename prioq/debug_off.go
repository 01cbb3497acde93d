//go:build !prioq_debug

package prioq

import "cmp"

// Release build: the debug assertions compile away to nothing, and the
// compiler inlines these no-ops out of existence entirely.

func assertReachable[K any, V any](label string, n, tail *node[K, V]) {}

func assertEnter[K cmp.Ordered, V any](h *Handle[K, V]) {}

func assertExit[K cmp.Ordered, V any](h *Handle[K, V]) {}

