package app

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

func discard() *slog.Logger { return slogx.Discard() }

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600)
}
