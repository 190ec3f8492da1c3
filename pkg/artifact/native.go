package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/emersion/go-message/mail"
)

const WriterNative = "native"

type NativeConfig struct {
	// From is the sender address written to the message, optional
	From string
	// SignaturePath is a UTF-8 text file appended to the body, optional
	SignaturePath string
}

// NativeWriter writes an RFC 5322 .eml message plus a .txt copy of its body
type NativeWriter struct {
	cfg    NativeConfig
	logger ectologger.Logger
	now    func() time.Time
}

func NewNativeWriter(cfg NativeConfig, logger ectologger.Logger) *NativeWriter {
	return &NativeWriter{cfg: cfg, logger: logger, now: time.Now}
}

func (w *NativeWriter) Name() string {
	return WriterNative
}

// Probe renders a throwaway message to check the writer can be used on this host
func (w *NativeWriter) Probe() error {
	if w.cfg.From != "" {
		if _, err := mail.ParseAddress(w.cfg.From); err != nil {
			return fmt.Errorf("invalid sender address %q: %w", w.cfg.From, err)
		}
	}
	return w.render(io.Discard, &Notice{}, "")
}

func (w *NativeWriter) Write(ctx context.Context, notice *Notice, dir, baseName string) (string, error) {
	body := Body(notice)
	if signature := w.signature(ctx); signature != "" {
		body += "\n\n" + signature
	}

	var buf bytes.Buffer
	if err := w.render(&buf, notice, body); err != nil {
		return "", err
	}

	path := filepath.Join(dir, baseName+".eml")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// the copy is a convenience; the .eml is already in place
	copyPath := filepath.Join(dir, baseName+".txt")
	if err := os.WriteFile(copyPath, []byte(body), 0o644); err != nil {
		w.logger.WithContext(ctx).WithError(err).WithField("path", copyPath).Warn("Failed to write plain-text copy")
	}
	return path, nil
}

func (w *NativeWriter) render(out io.Writer, notice *Notice, body string) error {
	var h mail.Header
	h.SetDate(w.now())
	h.SetSubject(Subject(notice.Client))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if w.cfg.From != "" {
		from, err := mail.ParseAddress(w.cfg.From)
		if err != nil {
			return fmt.Errorf("invalid sender address %q: %w", w.cfg.From, err)
		}
		h.SetAddressList("From", []*mail.Address{from})
	}
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("failed to generate message id: %w", err)
	}

	bw, err := mail.CreateSingleInlineWriter(out, h)
	if err != nil {
		return fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(bw, body); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}
	return bw.Close()
}

func (w *NativeWriter) signature(ctx context.Context) string {
	if w.cfg.SignaturePath == "" {
		return ""
	}
	data, err := os.ReadFile(w.cfg.SignaturePath)
	if err != nil {
		w.logger.WithContext(ctx).WithError(err).WithField("path", w.cfg.SignaturePath).Warn("Failed to read signature")
		return ""
	}
	return strings.TrimRight(string(data), "\r\n")
}
