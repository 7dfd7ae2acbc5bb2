package logger

import (
  "os"
  "strings"

  "go.uber.org/zap"
  "go.uber.org/zap/zapcore"
)

var Log *zap.Logger

// Init sets up a global logger. Call once in main().
func Init() error {
  // JSON output with level filtering; switch to zap.NewDevelopmentConfig()
  // locally if you want console encoding
  cfg := zap.NewProductionConfig()
  cfg.EncoderConfig.TimeKey = "ts"
  cfg.EncoderConfig.MessageKey = "msg"
  if level := os.Getenv("LOG_LEVEL"); level != "" {
    cfg.Level.SetLevel(parseLevel(level))
  }
  var err error
  Log, err = cfg.Build()
  return err
}

// parseLevel maps strings to zapcore.Level, defaulting to info
func parseLevel(s string) zapcore.Level {
  switch strings.ToLower(s) {
  case "debug":
    return zapcore.DebugLevel
  case "warn":
    return zapcore.WarnLevel
  case "error":
    return zapcore.ErrorLevel
  default:
    return zapcore.InfoLevel
  }
}
