package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the diagnostic logger. Without verbose or JSON output it
// returns a no-op logger so progress lines stay the only console output.
func NewLogger(verbose, jsonOutput bool) (*zap.Logger, error) {
	switch {
	case jsonOutput:
		// JSON structured output for machine consumption
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		return config.Build()
	case verbose:
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stderr),
				zap.DebugLevel,
			),
		), nil
	default:
		return zap.NewNop(), nil
	}
}
