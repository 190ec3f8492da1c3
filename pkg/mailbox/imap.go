package mailbox

import (
	"context"
	"fmt"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS dials implicit TLS; otherwise STARTTLS is used
	TLS     bool
	Mailbox string
	// Limit caps the messages handled per run, oldest first. Zero means no cap.
	Limit int
}

func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Message is one fetched mail
type Message struct {
	UID     imap.UID
	Subject string
	Raw     []byte
}

// Session is an authenticated mailbox connection
type Session interface {
	Unseen(ctx context.Context, limit int) ([]Message, error)
	MarkSeen(ctx context.Context, uids []imap.UID) error
	Close() error
}

// Dialer opens a Session
type Dialer func(ctx context.Context, cfg Config) (Session, error)

type imapSession struct {
	client *imapclient.Client
}

// DialIMAP connects, logs in and selects the configured mailbox
func DialIMAP(_ context.Context, cfg Config) (Session, error) {
	var (
		client *imapclient.Client
		err    error
	)
	if cfg.TLS {
		client, err = imapclient.DialTLS(cfg.Addr(), nil)
	} else {
		client, err = imapclient.DialStartTLS(cfg.Addr(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", cfg.Addr(), err)
	}

	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", cfg.Username, err)
	}

	mailbox := cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	return &imapSession{client: client}, nil
}

func (s *imapSession) Unseen(_ context.Context, limit int) ([]Message, error) {
	searchData, err := s.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var messages []Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			return messages, fmt.Errorf("collecting message data: %w", err)
		}

		message := Message{UID: buf.UID, Raw: buf.FindBodySection(bodySection)}
		if buf.Envelope != nil {
			message.Subject = buf.Envelope.Subject
		}
		messages = append(messages, message)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}
	return messages, nil
}

func (s *imapSession) MarkSeen(_ context.Context, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	return s.client.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil).Close()
}

func (s *imapSession) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		s.client.Close()
		return err
	}
	return s.client.Close()
}
