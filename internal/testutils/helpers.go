package testutils

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Settle forces garbage collections until cond holds, failing the test
// if it still does not hold after five seconds. Weak references clear
// on the collector's schedule, not the caller's, so tests assert
// "eventually reclaimed" instead of counting cycles.
func Settle(t testing.TB, cond func() bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		runtime.GC()
		return cond()
	}, 5*time.Second, 10*time.Millisecond, "condition still false after repeated collections")
}
