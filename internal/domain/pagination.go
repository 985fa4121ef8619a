package domain

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// Page size bounds for list operations. A request outside these bounds is
// clamped, never rejected.
const (
	DefaultMaxResults = 100
	MaxMaxResults     = 1000
)

// tokenPrefix guards against clients feeding arbitrary base64 as a token.
const tokenPrefix = "o:"

// PageRequest carries the pagination parameters of a list call. PageToken is
// opaque to clients; only this package knows its layout.
type PageRequest struct {
	MaxResults int
	PageToken  string
}

// Offset recovers the row offset carried by the page token. Empty or
// malformed tokens mean the first page.
func (p PageRequest) Offset() int {
	raw, err := base64.RawURLEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	rest, ok := strings.CutPrefix(string(raw), tokenPrefix)
	if !ok {
		return 0
	}
	offset, err := strconv.Atoi(rest)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Limit is the effective page size: MaxResults clamped to
// [1, MaxMaxResults], defaulting when unset.
func (p PageRequest) Limit() int {
	switch {
	case p.MaxResults <= 0:
		return DefaultMaxResults
	case p.MaxResults > MaxMaxResults:
		return MaxMaxResults
	default:
		return p.MaxResults
	}
}

// NextPageToken builds the token for the page after the one just served, or
// "" when the listing is exhausted.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if int64(next) >= total {
		return ""
	}
	return encodePageToken(next)
}

func encodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(tokenPrefix + strconv.Itoa(offset)))
}
