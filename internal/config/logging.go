package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Attribute keys whose values never reach a log sink.
var secretKeys = map[string]bool{
	"access_key":    true,
	"secret_key":    true,
	"authorization": true,
}

// Upload tokens identify a project to anyone who holds them, so logs keep
// only a prefix long enough to tell projects apart.
const tokenPrefixLen = 8

// redactAttr hides credentials and shortens upload tokens.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	switch {
	case secretKeys[a.Key]:
		return slog.String(a.Key, "[redacted]")
	case a.Key == "upload_token" && a.Value.Kind() == slog.KindString:
		if tok := a.Value.String(); len(tok) > tokenPrefixLen {
			return slog.String(a.Key, tok[:tokenPrefixLen]+"...")
		}
	}
	return a
}

func handlerOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{Level: level, ReplaceAttr: redactAttr}
}

// SetupLogger builds the client logger at level: text to stderr and, when
// logFile is set, JSON to that file as well. Credentials are redacted in
// both. The returned func closes the file.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	noop := func() error { return nil }
	stderrHandler := slog.NewTextHandler(os.Stderr, handlerOptions(level))
	if logFile == "" {
		return slog.New(stderrHandler), noop
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		logger := slog.New(stderrHandler)
		logger.Warn("log file unavailable, logging to stderr only", "file", logFile, "error", err)
		return logger, noop
	}
	return newFanoutLogger(stderrHandler, file, level), file.Close
}

// SetupLoggerWithWriters is SetupLogger over arbitrary writers.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return newFanoutLogger(slog.NewTextHandler(stderr, handlerOptions(level)), file, level)
}

func newFanoutLogger(stderrHandler slog.Handler, file io.Writer, level slog.Level) *slog.Logger {
	fileHandler := slog.NewJSONHandler(file, handlerOptions(level))
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
}
