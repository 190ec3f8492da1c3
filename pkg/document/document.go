// Package document turns uploaded notification files into plain text
package document

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	ExtensionText    = ".txt"
	ExtensionEmail   = ".eml"
	ExtensionOutlook = ".msg"
)

// Reader dispatches on the file extension, case-insensitively
type Reader struct {
	logger ectologger.Logger
}

func NewReader(logger ectologger.Logger) *Reader {
	return &Reader{logger: logger}
}

// Read returns the text of the document. Blank results fail with EmptyDocumentError,
// unknown extensions with UnsupportedDocumentFormatError.
func (r *Reader) Read(ctx context.Context, filename string, body []byte) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Reader.Read")
	defer span.End()

	ext := strings.ToLower(filepath.Ext(filename))
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"filename":  filename,
		"extension": ext,
		"bytes":     len(body),
	})

	var (
		text string
		err  error
	)
	switch ext {
	case ExtensionText:
		text = strings.TrimPrefix(strings.ToValidUTF8(string(body), "\ufffd"), "\ufeff")
	case ExtensionEmail:
		text, err = ReadEmail(body)
	case ExtensionOutlook:
		text, err = ReadOutlookMessage(body)
	default:
		err = &errors.UnsupportedDocumentFormatError{Extension: ext}
	}
	if err != nil {
		log.WithError(err).Warn("Document could not be read")
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		log.Warn("Document has no text")
		return "", &errors.EmptyDocumentError{Name: filename}
	}

	log.Debug("Read document")
	return text, nil
}
