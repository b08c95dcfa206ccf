// Package logging configures the process-wide structured logger: a
// colorized console handler always, and an optional JSON file handler
// fanned out alongside it when a log directory is configured.
//
// Grounded on ossyrian-mintyparse/internal/logging (tint for the console
// handler, slog-multi for the file fanout), reworked here around a
// handler slice rather than a single file/console branch so a third sink
// could be added later without restructuring the function.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Setup installs the default slog logger at the given level. When
// logOutputDir is non-empty, logs also fan out to a timestamped JSON file
// under that directory.
func Setup(levelStr, logOutputDir string) error {
	level := parseLevel(levelStr)
	handlers := []slog.Handler{tint.NewHandler(os.Stderr, &tint.Options{Level: level})}

	if logOutputDir != "" {
		h, path, err := fileHandler(logOutputDir, level)
		if err != nil {
			return err
		}
		handlers = append(handlers, h)
		fmt.Fprintf(os.Stderr, "logging to file: %s\n", path)
	}

	if len(handlers) == 1 {
		slog.SetDefault(slog.New(handlers[0]))
	} else {
		slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
	}
	return nil
}

// fileHandler opens a fresh timestamped log file under dir and wraps it in
// a JSON handler, creating the directory first if needed.
func fileHandler(dir string, level slog.Level) (slog.Handler, string, error) {
	dir = os.ExpandEnv(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("logging: create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("zipcrack_%s.log", time.Now().Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("logging: open log file: %w", err)
	}
	return slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}), path, nil
}

func parseLevel(s string) slog.Level {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"fatal": slog.LevelError,
	}
	if lvl, ok := levels[s]; ok {
		return lvl
	}
	return slog.LevelInfo
}
