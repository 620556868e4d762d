package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status    PostStatus
		canAccept bool
		canReject bool
		canDelete bool
		canEdit   bool
	}{
		{StatusPending, true, true, true, true},
		{StatusAccepted, false, false, true, true},
		{StatusRejected, false, false, true, true},
		{StatusDeleted, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := &Post{Status: tt.status}
			assert.Equal(t, tt.canAccept, p.CanAccept())
			assert.Equal(t, tt.canReject, p.CanReject())
			assert.Equal(t, tt.canDelete, p.CanDelete())
			assert.Equal(t, tt.canEdit, p.CanEdit())
		})
	}
}

func TestNewPostDefaults(t *testing.T) {
	p := NewPost("title", "content", "daily")

	assert.Equal(t, StatusPending, p.Status)
	assert.Nil(t, p.Number)
	assert.Len(t, p.AuthorHash, 64) // sha256 hex digest
}

func TestNewAuthorHashUnguessable(t *testing.T) {
	// same instant must still yield distinct tokens
	now := time.Now()
	a := NewAuthorHash(now)
	b := NewAuthorHash(now)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestProjections(t *testing.T) {
	num := uint64(7)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Post{
		ID:         42,
		Number:     &num,
		Title:      "hello",
		Content:    "world",
		Tag:        "daily",
		FbLink:     "https://fb.example/7",
		Status:     StatusAccepted,
		AuthorHash: "deadbeef",
		CreatedAt:  created,
	}

	pub := p.ToPublic()
	assert.Equal(t, uint64(42), pub.ID)
	assert.Equal(t, &num, pub.Number)
	assert.Equal(t, created.UnixMilli(), pub.CreatedAt)
	assert.Equal(t, p.CursorID(), pub.CursorID)

	author := p.ToAuthor()
	assert.Equal(t, pub.ID, author.ID)
	assert.Equal(t, "deadbeef", author.AuthorHash)
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusDeleted))
	assert.False(t, ValidStatus(PostStatus("ARCHIVED")))
	assert.False(t, ValidStatus(PostStatus("")))
}
