package main

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process logger from the logging section
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}
