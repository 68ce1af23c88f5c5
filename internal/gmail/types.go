package gmail

import (
	"strings"
	"time"
)

type MessageID string

type MessageMeta struct {
	ID           MessageID
	Headers      map[string]string // From, To, Subject, Date
	InternalDate time.Time         // zero when Gmail did not report one
}

type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

type Query struct {
	Raw string // Gmail query string, already formed (e.g., `from:news@example.com`)
}

// SenderQuery restricts a listing to messages sent by addr.
func SenderQuery(addr string) Query {
	return Query{Raw: "from:" + strings.TrimSpace(addr)}
}
