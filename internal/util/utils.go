package util

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a production zap logger at the given level
func NewLogger(level string, outputPaths []string) (*zap.Logger, error) {
	cfgZap := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfgZap.Level = lvl
	}
	if len(outputPaths) > 0 {
		cfgZap.OutputPaths = outputPaths
	}
	return cfgZap.Build()
}
