package ledger

import "go.uber.org/zap"

// NewLogger builds the production zap logger used by the engine for
// operational events (period close and rebuild mismatches). It falls back
// to zap.NewNop() when the production logger cannot be built.
func NewLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
