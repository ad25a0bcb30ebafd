// Package testing prepares the process environment for test binaries. Import it
// for side effects so mains and config loading never reach real infrastructure.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var testDefaults = map[string]string{
	"APP_TIMEZONE":  "Asia/Kolkata",
	"GOTENBERG_URL": "http://127.0.0.1:0",
	"REDIS_ADDR":    "127.0.0.1:0",
}

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("BIZLEDGER_TEST_MODE", "1")
		for key, value := range testDefaults {
			if _, ok := os.LookupEnv(key); !ok {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs the suite with the test environment applied.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
