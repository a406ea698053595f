// Package testing is imported for its side effects by package tests that
// build the app: it switches on test mode and fills secrets LoadConfig needs.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var (
	once     sync.Once
	defaults = map[string]string{
		"EVENTDESK_TEST_MODE": "1",
		"SESSION_SECRET":      "test-session-secret",
		"CSRF_SECRET":         "test-csrf-secret",
		"TOKEN_SECRET":        "test-token-secret",
	}
)

func ensureTestEnv() {
	once.Do(func() {
		for key, value := range defaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestEnv()
}

// TestMain lets a package use this file as its own entry point.
func TestMain(m *stdtesting.M) {
	ensureTestEnv()
	os.Exit(m.Run())
}
