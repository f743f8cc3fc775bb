package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination of the process logger.
type Config struct {
	Service    string // added to every entry as "service" when set
	Level      string // debug, info, warn, error; anything else means info
	Encoding   string // "console" or json
	OutputPath string // file path, "stdout" when empty
}

func (c Config) level() (zapcore.Level, bool) {
	name := strings.ToLower(strings.TrimSpace(c.Level))
	if name == "" {
		return zapcore.InfoLevel, true
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel, false
	}
	return lvl, true
}

func (c Config) encoder() zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if strings.EqualFold(c.Encoding, "console") {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// New builds the process logger. Invalid levels and encodings degrade to
// info and json instead of failing startup.
func New(cfg Config) (*zap.Logger, error) {
	path := cfg.OutputPath
	if path == "" {
		path = "stdout"
	}
	sink, _, err := zap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", path, err)
	}

	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if cfg.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", cfg.Service)))
	}
	lvl, known := cfg.level()
	log := zap.New(zapcore.NewCore(cfg.encoder(), sink, lvl), opts...)
	if !known {
		log.Warn("Unknown log level, using info", zap.String("requested_level", cfg.Level))
	}
	return log, nil
}

// MaskToken keeps the first eight characters of a bearer token so log lines
// can be correlated without exposing a usable credential.
func MaskToken(token string) string {
	const keep = 8
	if len(token) <= keep {
		return "***"
	}
	return token[:keep] + "***"
}
