package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger for the environment named by ENVIRONMENT
func NewLogger() (*zap.Logger, error) {
	return NewLoggerFor(os.Getenv("ENVIRONMENT"))
}

// NewLoggerFor creates a zap logger for the given environment.
// Production logs JSON at warn level and above, anything else logs
// colored console output at info level and above.
func NewLoggerFor(env string) (*zap.Logger, error) {
	config := developmentConfig()
	if env == "production" {
		config = productionConfig()
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	logger.Info("Activation portal logger initialized, tokens and passwords are never logged",
		zap.String("environment", env))

	return logger, nil
}

func productionConfig() zap.Config {
	encoder := baseEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.LevelKey = "level"
	encoder.NameKey = "logger"
	encoder.CallerKey = "caller"
	encoder.MessageKey = "message"
	encoder.StacktraceKey = "stacktrace"
	encoder.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoder.EncodeDuration = zapcore.SecondsDurationEncoder

	return zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.WarnLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

func developmentConfig() zap.Config {
	encoder := baseEncoderConfig()
	encoder.TimeKey = "T"
	encoder.LevelKey = "L"
	encoder.NameKey = "N"
	encoder.CallerKey = "C"
	encoder.MessageKey = "M"
	encoder.StacktraceKey = "S"
	encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder

	return zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

func baseEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		FunctionKey:  zapcore.OmitKey,
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
}
