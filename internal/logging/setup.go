package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gemini-gateway/internal/config"
	log "github.com/sirupsen/logrus"
)

var logMux sync.Mutex

// Setup configures the global logrus logger from cfg.LogLevel/LogFormat.
// It is idempotent and can be called multiple times; the most recent call wins.
func Setup(cfg *config.Config) error {
	logMux.Lock()
	defer logMux.Unlock()

	var formatter log.Formatter = &log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	}
	if cfg != nil && strings.EqualFold(cfg.LogFormat, "json") {
		formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	}
	log.SetFormatter(formatter)

	level := log.InfoLevel
	if cfg != nil {
		if parsed, err := log.ParseLevel(cfg.LogLevel); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
	log.SetOutput(io.Writer(os.Stdout))
	return nil
}
