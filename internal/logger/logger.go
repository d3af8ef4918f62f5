// Package logger builds the process-wide zap logger from the LOGGING
// section of the configuration store. Rotation/retention is delegated to
// lumberjack, matching the go.uber.org/zap + gopkg.in/natefinch/lumberjack.v2
// pairing used for agent logging in other_examples' growloc-cctv-agent
// manifest (module github.com/cctv-agent).
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/config"
)

// New builds a *zap.SugaredLogger from the LOGGING section of s. The
// returned logger writes JSON-encoded entries to a lumberjack-rotated file
// under s.Logging.LogDirectory, and additionally to stdout in human-readable
// form when s.Logging.ConsoleLogging is set.
func New(s *config.Settings) (*zap.SugaredLogger, error) {
	level, err := parseLevel(s.Logging.LogLevel)
	if err != nil {
		return nil, err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(s.Logging.LogDirectory, "application.log"),
		MaxSize:    s.Logging.MaxFileSizeMB,
		MaxBackups: s.Logging.RetentionDays,
		MaxAge:     s.Logging.RetentionDays,
		Compress:   true,
	}

	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(fileEncoder, zapcore.AddSync(fileWriter), level),
	}

	if s.Logging.ConsoleLogging {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(os.Stdout)), level))
	}

	core := zapcore.NewTee(cores...)
	l := zap.New(core, zap.AddCaller())
	return l.Sugar(), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO":
		return zapcore.InfoLevel, nil
	case "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("logger: unknown log level %q", s)
	}
}
