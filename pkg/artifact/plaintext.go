package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const WriterPlainText = "text"

// PlainTextWriter writes the body as a UTF-8 .txt file. It is always available.
type PlainTextWriter struct{}

func (PlainTextWriter) Name() string {
	return WriterPlainText
}

func (PlainTextWriter) Write(_ context.Context, notice *Notice, dir, baseName string) (string, error) {
	path := filepath.Join(dir, baseName+".txt")
	if err := os.WriteFile(path, []byte(Body(notice)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
