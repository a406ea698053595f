package app

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// TestModeEnv names the variable that keeps the binaries from dialing
// Postgres, Redis or asynq. Package tests set it through testing/TestMain.go.
const TestModeEnv = "EVENTDESK_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	on, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(TestModeEnv)))
	testMode.Store(err == nil && on)
}

// InTestMode reports whether cmd/eventdesk and cmd/worker should return
// before touching infrastructure.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads TestModeEnv after the environment changed.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
