package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"
)

// Document is a file handed to the processor
type Document struct {
	Filename string
	Body     []byte
}

var attachmentExtensions = map[string]bool{".txt": true, ".eml": true, ".msg": true}

// Documents splits a message into the notifications it carries. Attached .txt, .eml and .msg
// files are processed on their own; a message without them is processed as a whole.
func Documents(msg Message) []Document {
	whole := []Document{{Filename: fmt.Sprintf("message-%d.eml", msg.UID), Body: msg.Raw}}

	mr, err := mail.CreateReader(bytes.NewReader(msg.Raw))
	if err != nil {
		return whole
	}
	defer mr.Close()

	var docs []Document
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := h.Filename()
		if err != nil || !attachmentExtensions[strings.ToLower(filepath.Ext(filename))] {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		docs = append(docs, Document{Filename: filename, Body: body})
	}

	if len(docs) == 0 {
		return whole
	}
	return docs
}
