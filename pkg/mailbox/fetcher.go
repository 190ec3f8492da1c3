// Package mailbox pulls unseen notifications from an IMAP mailbox and hands them to the processor
package mailbox

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/emersion/go-imap/v2"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const Source = "mailbox"

type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, filename string, body []byte, carrierHint *string) (*models.ProcessResult, error)
}

// Outcome is what happened to one document
type Outcome struct {
	UID      imap.UID              `json:"uid"`
	Subject  string                `json:"subject"`
	Filename string                `json:"filename"`
	Result   *models.ProcessResult `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

type Report struct {
	Messages  int       `json:"messages"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

type Fetcher struct {
	cfg       Config
	dial      Dialer
	processor DocumentProcessor
	logger    ectologger.Logger
}

func NewFetcher(cfg Config, dial Dialer, processor DocumentProcessor, logger ectologger.Logger) *Fetcher {
	if dial == nil {
		dial = DialIMAP
	}
	return &Fetcher{cfg: cfg, dial: dial, processor: processor, logger: logger}
}

// Run processes every unseen message once. A message is flagged \Seen when all of its
// documents were processed or failed permanently; transient store failures leave it unseen
// so the next run picks it up again.
func (f *Fetcher) Run(ctx context.Context, carrierHint *string) (report *Report, err error) {
	ctx, span := tracing.StartSpan(ctx, "mailbox.Fetcher.Run")
	defer span.End()
	defer func() { tracing.RecordError(span, err) }()

	ctx = fernctx.SetSource(ctx, Source)
	log := f.logger.WithContext(ctx).WithField("mailbox", f.cfg.Mailbox)

	session, err := f.dial(ctx, f.cfg)
	if err != nil {
		log.WithError(err).Error("Failed to open mailbox")
		return nil, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close mailbox session")
		}
	}()

	messages, err := session.Unseen(ctx, f.cfg.Limit)
	if err != nil {
		log.WithError(err).Error("Failed to fetch unseen messages")
		return nil, err
	}

	report = &Report{Messages: len(messages)}
	var seen []imap.UID
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			break
		}

		retry := false
		for _, doc := range Documents(msg) {
			outcome := Outcome{UID: msg.UID, Subject: msg.Subject, Filename: doc.Filename}
			result, err := f.processor.ProcessDocument(ctx, doc.Filename, doc.Body, carrierHint)
			if err != nil {
				outcome.Error = err.Error()
				report.Failed++
				if errors.IsStoreUnavailable(err) {
					retry = true
					metrics.MailboxMessagesTotal.WithLabelValues("retry").Inc()
				} else {
					metrics.MailboxMessagesTotal.WithLabelValues("rejected").Inc()
				}
				log.WithError(err).WithFields(map[string]any{
					"uid":      uint32(msg.UID),
					"filename": doc.Filename,
				}).Warn("Failed to process mailbox document")
			} else {
				outcome.Result = result
				report.Processed++
				metrics.MailboxMessagesTotal.WithLabelValues("processed").Inc()
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}

		if !retry {
			seen = append(seen, msg.UID)
		}
	}

	if err := session.MarkSeen(ctx, seen); err != nil {
		log.WithError(err).Error("Failed to flag messages as seen")
		return report, fmt.Errorf("flagging messages as seen: %w", err)
	}

	log.WithFields(map[string]any{
		"messages":  report.Messages,
		"processed": report.Processed,
		"failed":    report.Failed,
	}).Info("Mailbox run finished")
	return report, nil
}
