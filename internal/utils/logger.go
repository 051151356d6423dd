package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger, set up once by InitLogger.
var Logger zerolog.Logger

type LogConfig struct {
	Level      string // trace, debug, info, warn, error, fatal, panic
	LogDir     string
	MaxSize    int // max size of one log file in MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger wires the global logger to a color console writer and a
// rotated log file.
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(config.LogDir, "sitemapd.log"),
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	Logger = zerolog.New(io.MultiWriter(consoleWriter, logFile)).
		With().
		Timestamp().
		Logger()

	log.Logger = Logger

	return nil
}

func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Infof(format string, args ...interface{}) {
	Logger.Info().Msgf(format, args...)
}

func Error(err error, msg string) {
	Logger.Error().Err(err).Msg(msg)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warn().Msgf(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debug().Msgf(format, args...)
}

func Fatal(err error, msg string) {
	Logger.Fatal().Err(err).Msg(msg)
}
