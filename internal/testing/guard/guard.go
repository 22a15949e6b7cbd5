// Package guard switches binaries into test mode when imported by tests, so
// entrypoints return before dialling PostgreSQL or Redis.
package guard

import (
	"os"
	"sync"
)

// TestModeEnv is the variable read by app.InTestMode.
const TestModeEnv = "RECEIVABLES_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(TestModeEnv) == "" {
			_ = os.Setenv(TestModeEnv, "1")
		}
	})
}
