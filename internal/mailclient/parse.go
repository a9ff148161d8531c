package mailclient

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"voyagemail/internal/model"
)

// parseMessage extracts the envelope fields and the most CSV-like text part
// from a raw RFC 5322 message. Inline text/plain and text/csv parts win over
// attachments; within each group the first part is kept.
func parseMessage(raw []byte) (*model.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	msg := &model.Message{}
	if id, err := mr.Header.MessageID(); err == nil {
		msg.ID = id
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	}
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		msg.From = addrs[0].Address
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.ReceivedAt = date
	}

	var attachment string
	for msg.Body == "" {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read message part: %w", err)
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ctype, _, _ := h.ContentType()
			if ctype == "text/plain" || ctype == "text/csv" {
				body, err := io.ReadAll(part.Body)
				if err != nil {
					return nil, fmt.Errorf("read message body: %w", err)
				}
				msg.Body = string(body)
			}
		case *mail.AttachmentHeader:
			if attachment != "" {
				continue
			}
			filename, _ := h.Filename()
			ctype, _, _ := h.ContentType()
			if ctype == "text/csv" || strings.HasSuffix(strings.ToLower(filename), ".csv") {
				body, err := io.ReadAll(part.Body)
				if err != nil {
					return nil, fmt.Errorf("read attachment: %w", err)
				}
				attachment = string(body)
			}
		}
	}
	if msg.Body == "" {
		msg.Body = attachment
	}
	return msg, nil
}
