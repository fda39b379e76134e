package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv set to "1" keeps the binaries from dialing postgres/redis or listening.
const TestModeEnv = "SAO_TEST_MODE"

var testMode = &envFlag{name: TestModeEnv}

// envFlag caches a boolean environment switch until refreshed.
type envFlag struct {
	name string
	once sync.Once
	on   atomic.Bool
}

func (f *envFlag) load() {
	f.on.Store(os.Getenv(f.name) == "1")
}

func (f *envFlag) enabled() bool {
	f.once.Do(f.load)
	return f.on.Load()
}

// InTestMode reports whether entrypoints should return before touching infrastructure.
func InTestMode() bool {
	return testMode.enabled()
}

// RefreshTestMode re-reads TestModeEnv after the environment changed.
func RefreshTestMode() {
	testMode.once.Do(func() {})
	testMode.load()
}
