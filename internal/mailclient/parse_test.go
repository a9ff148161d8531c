package mailclient

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crlf rewrites test fixtures to the wire line endings RFC 5322 requires.
func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

const plainMessage = `From: Fleet Ops <ops@carrier.example>
To: ingest@fleet.example
Subject: Voyage Report V123
Message-ID: <report-123@carrier.example>
Date: Fri, 01 Mar 2024 08:30:00 +0000
Content-Type: text/plain; charset=utf-8

Timestamp,Speed
2024-03-01 08:30:00,12.5
`

func TestParseMessagePlain(t *testing.T) {
	msg, err := parseMessage([]byte(crlf(plainMessage)))
	require.NoError(t, err)

	assert.Equal(t, "ops@carrier.example", msg.From, "bare address, display name stripped")
	assert.Equal(t, "Voyage Report V123", msg.Subject)
	assert.Equal(t, "report-123@carrier.example", msg.ID)
	assert.True(t, msg.ReceivedAt.Equal(time.Date(2024, time.March, 1, 8, 30, 0, 0, time.UTC)))
	assert.Equal(t, crlf("Timestamp,Speed\n2024-03-01 08:30:00,12.5\n"), msg.Body)
}

func TestParseMessageEncodedSubject(t *testing.T) {
	raw := crlf(`From: ops@carrier.example
Subject: =?UTF-8?Q?Voyage_Report_V123?=
Content-Type: text/plain; charset=utf-8

Timestamp,Speed
`)
	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Voyage Report V123", msg.Subject)
}

func TestParseMessageBase64Body(t *testing.T) {
	raw := crlf(`From: ops@carrier.example
Subject: Voyage Report V123
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

VGltZXN0YW1wLFNwZWVkCjIwMjQtMDMtMDEgMDg6MzA6MDAsMTIuNQo=
`)
	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Speed\n2024-03-01 08:30:00,12.5\n", msg.Body)
}

func TestParseMessageMultipartInline(t *testing.T) {
	raw := crlf(`From: ops@carrier.example
Subject: Voyage Report V7
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary=frontier

--frontier
Content-Type: text/plain; charset=utf-8

Timestamp,Speed
2024-03-02 10:00:00,11.2
--frontier
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"

%PDF-1.4 not csv
--frontier--
`)
	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.Body, "Timestamp,Speed"))
	assert.Contains(t, msg.Body, "2024-03-02 10:00:00,11.2")
	assert.NotContains(t, msg.Body, "PDF")
}

func TestParseMessageCSVAttachmentFallback(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
	}{
		{"declared text/csv", "text/csv; charset=utf-8", "voyage_9.csv"},
		{"csv extension only", "application/octet-stream", "VOYAGE_9.CSV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := crlf(`From: ops@carrier.example
Subject: Voyage Report V9
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary=frontier

--frontier
Content-Type: ` + tt.contentType + `
Content-Disposition: attachment; filename="` + tt.filename + `"

Timestamp,Speed
2024-03-03 12:00:00,10.1
--frontier--
`)
			msg, err := parseMessage([]byte(raw))
			require.NoError(t, err)
			assert.Contains(t, msg.Body, "2024-03-03 12:00:00,10.1")
		})
	}
}

// When a message carries both, the inline text wins even if an attachment
// appears first in part order.
func TestParseMessageInlinePreferredOverAttachment(t *testing.T) {
	raw := crlf(`From: ops@carrier.example
Subject: Voyage Report V9
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary=frontier

--frontier
Content-Type: text/csv
Content-Disposition: attachment; filename="old_copy.csv"

Timestamp,Speed
2024-01-01 00:00:00,0.0
--frontier
Content-Type: text/plain; charset=utf-8

Timestamp,Speed
2024-03-03 12:00:00,10.1
--frontier--
`)
	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "2024-03-03 12:00:00,10.1")
	assert.NotContains(t, msg.Body, "2024-01-01")
}

func TestParseMessageNoCSVContent(t *testing.T) {
	raw := crlf(`From: ops@carrier.example
Subject: Voyage Report V9
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary=frontier

--frontier
Content-Type: text/html; charset=utf-8

<p>see attachment</p>
--frontier
Content-Type: application/pdf
Content-Disposition: attachment; filename="scan.pdf"

%PDF-1.4
--frontier--
`)
	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, msg.Body, "html and non-csv attachments are not ingestable content")
	assert.Equal(t, "Voyage Report V9", msg.Subject, "envelope still parsed")
}
