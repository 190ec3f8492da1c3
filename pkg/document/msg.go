package document

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/Ramsey-B/fern/pkg/errors"
)

// Outlook property streams at the top level of the container. Attachments and
// recipients live in sub-storages and are skipped.
const (
	streamBodyUnicode = "__substg1.0_1000001F"
	streamBodyANSI    = "__substg1.0_1000001E"
	streamHTMLBinary  = "__substg1.0_10130102"
	streamHTMLUnicode = "__substg1.0_1013001F"
)

var errNoBody = stderrors.New("message has no body stream")

// ReadOutlookMessage extracts the body of an Outlook .msg file. The plain text body
// wins; without one the html body is reduced to text.
func ReadOutlookMessage(raw []byte) (string, error) {
	doc, err := mscfb.New(bytes.NewReader(raw))
	if err != nil {
		return "", &errors.UnsupportedDocumentFormatError{Extension: ExtensionOutlook}
	}

	streams := map[string][]byte{}
	for entry, err := doc.Next(); err != io.EOF; entry, err = doc.Next() {
		if err != nil {
			return "", fmt.Errorf("reading msg container: %w", err)
		}
		if len(entry.Path) > 0 {
			continue
		}
		switch entry.Name {
		case streamBodyUnicode, streamBodyANSI, streamHTMLBinary, streamHTMLUnicode:
			data, err := io.ReadAll(entry)
			if err != nil {
				return "", fmt.Errorf("reading %s: %w", entry.Name, err)
			}
			streams[entry.Name] = data
		}
	}

	if data, ok := streams[streamBodyUnicode]; ok {
		return decodeUTF16(data)
	}
	if data, ok := streams[streamBodyANSI]; ok {
		return decodeANSI(data)
	}
	if data, ok := streams[streamHTMLUnicode]; ok {
		content, err := decodeUTF16(data)
		if err != nil {
			return "", err
		}
		return HTMLToText(content)
	}
	if data, ok := streams[streamHTMLBinary]; ok {
		return HTMLToText(strings.TrimRight(string(data), "\x00"))
	}
	return "", fmt.Errorf("%w: %w", errNoBody, &errors.UnsupportedDocumentFormatError{Extension: ExtensionOutlook, ReaderUnavailable: true})
}

func decodeUTF16(data []byte) (string, error) {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding utf-16 body: %w", err)
	}
	return strings.TrimRight(string(out), "\x00"), nil
}

// decodeANSI assumes the western code page most carrier mail is sent with
func decodeANSI(data []byte) (string, error) {
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding ansi body: %w", err)
	}
	return strings.TrimRight(string(out), "\x00"), nil
}
