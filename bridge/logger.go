package bridge

import (
	"go.uber.org/zap"

	"github.com/BX-D/bridge/proxy"
)

// logger is the package-wide structured logger the default session's
// Logging middleware writes through. It starts silent, so the library
// stays quiet until its host opts in.
var logger = zap.NewNop().Sugar()

// SetLogger installs l as the package-wide logger, for this package and
// for proxy (which cannot import bridge itself without cycling back
// through Session). Passing nil restores the silent default in both.
func SetLogger(l *zap.SugaredLogger) {
	if l == nil {
		logger = zap.NewNop().Sugar()
		proxy.SetLogger(nil)
		return
	}
	logger = l
	proxy.SetLogger(l)
}
