package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Limit(t *testing.T) {
	assert.Equal(t, DefaultMaxResults, PageRequest{}.Limit())
	assert.Equal(t, DefaultMaxResults, PageRequest{MaxResults: -5}.Limit())
	assert.Equal(t, 25, PageRequest{MaxResults: 25}.Limit())
	assert.Equal(t, MaxMaxResults, PageRequest{MaxResults: 5000}.Limit())
}

func TestPageRequest_OffsetRoundTrip(t *testing.T) {
	token := NextPageToken(0, 100, 250)
	assert.NotEmpty(t, token)
	assert.Equal(t, 100, PageRequest{PageToken: token}.Offset())

	token = NextPageToken(100, 100, 250)
	assert.Equal(t, 200, PageRequest{PageToken: token}.Offset())
}

func TestPageRequest_OffsetToleratesGarbage(t *testing.T) {
	assert.Equal(t, 0, PageRequest{}.Offset())
	assert.Equal(t, 0, PageRequest{PageToken: "not base64!!"}.Offset())
	// Valid base64 that does not carry our layout.
	assert.Equal(t, 0, PageRequest{PageToken: "aGVsbG8"}.Offset())
}

func TestNextPageToken_EmptyAtEnd(t *testing.T) {
	assert.Empty(t, NextPageToken(200, 100, 250))
	assert.Empty(t, NextPageToken(0, 100, 100))
	assert.Empty(t, NextPageToken(0, 100, 0))
}
