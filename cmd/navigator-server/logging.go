package main

import (
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/carenav/navigator/internal/config"
)

// newLogger builds the process logger. Development gets the console writer;
// LOG_FILE adds a rotating JSON file next to the primary output.
func newLogger(cfg *config.Config, out io.Writer) (zerolog.Logger, func()) {
	w := out
	if cfg.IsDev() {
		w = zerolog.ConsoleWriter{Out: out}
	}

	closeFn := func() {}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(w, file)
		closeFn = func() { _ = file.Close() }
	}

	logger := zerolog.New(w).
		Level(cfg.Level()).
		With().
		Timestamp().
		Str("service", "navigator").
		Logger()
	return logger, closeFn
}
