package config

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging configures the standard logrus logger from LOG_LEVEL,
// LOG_FORMAT and LOG_FILE and returns an entry tagged with service
func SetupLogging(service string) *logrus.Entry {
	logger := logrus.StandardLogger()
	configureLogger(logger,
		GetEnv("LOG_LEVEL", "info"),
		GetEnv("LOG_FORMAT", "text"),
		os.Getenv("LOG_FILE"),
		GetEnvInt("LOG_MAX_SIZE_MB", 100),
		GetEnvInt("LOG_MAX_BACKUPS", 5),
		GetEnvInt("LOG_MAX_AGE_DAYS", 30),
	)
	return logger.WithField("service", service)
}

func configureLogger(logger *logrus.Logger, level, format, file string, maxSize, maxBackups, maxAge int) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if file != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   true,
		})
	}
	logger.SetOutput(out)
}
