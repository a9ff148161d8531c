package model

import "time"

// Message is a mail message reduced to the parts ingestion cares about.
// Body holds the text payload that may carry CSV records.
type Message struct {
	ID         string
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
}
