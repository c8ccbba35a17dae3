package proxy

import "go.uber.org/zap"

// logger is the package-wide structured logger Node uses to report a
// Send failure it must not let propagate into a pending request's
// resolution. It starts silent, so the library stays quiet until its
// host opts in.
var logger = zap.NewNop().Sugar()

// SetLogger installs l as the package-wide logger. Passing nil restores
// the silent default.
func SetLogger(l *zap.SugaredLogger) {
	if l == nil {
		logger = zap.NewNop().Sugar()
		return
	}
	logger = l
}
