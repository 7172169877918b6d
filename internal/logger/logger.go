package logger

import (
	"go.uber.org/zap"

	"safepass-compliance/internal/config"
)

// New returns a JSON production logger when env is "production" and a console development logger otherwise.
func New(cfg config.Config) (*zap.Logger, error) {
	if cfg.Env == "production" {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}
