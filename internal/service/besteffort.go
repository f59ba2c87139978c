package service

import (
	"go.uber.org/zap"
)

// bestEffort runs a secondary side effect whose failure must never fail the
// enclosing operation. The failure is logged and the step's success is
// returned so callers can record it.
func bestEffort(logger *zap.Logger, step string, fn func() error) bool {
	if err := fn(); err != nil {
		logger.Warn("best-effort step failed",
			zap.String("step", step),
			zap.Error(err))
		return false
	}
	return true
}
