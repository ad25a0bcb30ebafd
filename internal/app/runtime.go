package app

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const testModeEnv = "BIZLEDGER_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether binaries should return before opening Postgres,
// Redis or listeners. The flag is read on first use.
func InTestMode() bool {
	testModeOnce.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads BIZLEDGER_TEST_MODE. "1" and "true" enable it.
func RefreshTestMode() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(testModeEnv))) {
	case "1", "true":
		testMode.Store(true)
	default:
		testMode.Store(false)
	}
}
