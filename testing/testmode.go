// Package testing puts the service entrypoints into test mode. Test packages
// that exercise a main function import it for its side effect.
package testing

import (
	"os"
	"sync"

	"github.com/sao-erp/sao-erp/internal/app"
)

var once sync.Once

func init() {
	Enable()
}

// Enable sets SAO_TEST_MODE and refreshes the cached flag.
func Enable() {
	once.Do(func() {
		_ = os.Setenv(app.TestModeEnv, "1")
		app.RefreshTestMode()
	})
}
