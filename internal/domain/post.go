package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anongrove/grove-backend/pkg/cursor"
)

// PostStatus lifecycle state of a submission
type PostStatus string

const (
	StatusPending  PostStatus = "PENDING"
	StatusAccepted PostStatus = "ACCEPTED"
	StatusRejected PostStatus = "REJECTED"
	StatusDeleted  PostStatus = "DELETED"
)

// ValidStatus reports whether s is one of the four lifecycle states
func ValidStatus(s PostStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusDeleted:
		return true
	}
	return false
}

// Post is a submitted piece of content moving through moderation.
// Accepted posts carry a globally unique, gapless publication number; the
// unique index on number is the backstop against concurrent acceptances
// assigning the same one. Version is bumped on every save for optimistic
// locking. Deletion is a status, never a row removal, so the edit ledger
// stays auditable.
type Post struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Number     *uint64       `gorm:"uniqueIndex:ux_posts_number" json:"number,omitempty"`
	Title      string        `gorm:"type:varchar(255)" json:"title,omitempty"`
	Content    string        `gorm:"type:text;not null" json:"content"`
	Tag        string        `gorm:"type:varchar(64);not null;index:idx_posts_tag" json:"tag"`
	Status     PostStatus    `gorm:"type:varchar(16);not null;default:'PENDING';index:idx_posts_status" json:"status"`
	Reason     string        `gorm:"type:varchar(500)" json:"reason,omitempty"`
	FbLink     string        `gorm:"column:fb_link;type:varchar(500)" json:"fb_link,omitempty"`
	AuthorHash string        `gorm:"type:char(64);not null;index:idx_posts_author_hash" json:"-"`
	Version    uint64        `gorm:"not null;default:0" json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"-"`
	History    []PostHistory `gorm:"foreignKey:PostID" json:"-"`
}

func (Post) TableName() string { return "posts" }

// PostHistory is one entry of the append-only edit ledger: the content as it
// was immediately before an edit, and when the edit happened.
type PostHistory struct {
	ID       uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	PostID   uint64    `gorm:"not null;index:idx_post_histories_post" json:"-"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	EditedAt time.Time `gorm:"not null" json:"edited_at"`
}

func (PostHistory) TableName() string { return "post_histories" }

// NewPost builds a Pending submission with a freshly derived author hash
func NewPost(title, content, tag string) *Post {
	return &Post{
		Title:      title,
		Content:    content,
		Tag:        tag,
		Status:     StatusPending,
		AuthorHash: NewAuthorHash(time.Now()),
	}
}

// NewAuthorHash derives the anonymous ownership token. The creation instant
// alone would be guessable; mixing in a random UUID keeps the token opaque
// even when creation times collide.
func NewAuthorHash(createdAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", createdAt.UnixNano(), uuid.NewString())))
	return hex.EncodeToString(sum[:])
}

// CanAccept 채택은 대기 중인 글만 가능
func (p *Post) CanAccept() bool { return p.Status == StatusPending }

// CanReject 거절은 대기 중인 글만 가능
func (p *Post) CanReject() bool { return p.Status == StatusPending }

// CanDelete any status except Deleted can be soft-deleted
func (p *Post) CanDelete() bool { return p.Status != StatusDeleted }

// CanEdit edits are allowed until the post is deleted; accepting or
// rejecting does not freeze the content
func (p *Post) CanEdit() bool { return p.Status != StatusDeleted }

// CursorID returns the opaque pagination token for this post
func (p *Post) CursorID() string {
	return cursor.EncodeID(p.ID)
}

// PublicView is the projection served to readers: no ownership token
type PublicView struct {
	ID        uint64     `json:"id"`
	CursorID  string     `json:"cursor_id"`
	Number    *uint64    `json:"number,omitempty"`
	Title     string     `json:"title,omitempty"`
	Content   string     `json:"content"`
	Tag       string     `json:"tag"`
	FbLink    string     `json:"fb_link,omitempty"`
	Status    PostStatus `json:"status"`
	CreatedAt int64      `json:"created_at"`
}

// AuthorView is the public projection plus the ownership token, handed back
// to the submitting author so they can later prove the post is theirs
type AuthorView struct {
	PublicView
	AuthorHash string `json:"hash"`
}

// ToPublic projects the post for anonymous readers
func (p *Post) ToPublic() *PublicView {
	return &PublicView{
		ID:        p.ID,
		CursorID:  p.CursorID(),
		Number:    p.Number,
		Title:     p.Title,
		Content:   p.Content,
		Tag:       p.Tag,
		FbLink:    p.FbLink,
		Status:    p.Status,
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
}

// ToAuthor projects the post for its author
func (p *Post) ToAuthor() *AuthorView {
	return &AuthorView{
		PublicView: *p.ToPublic(),
		AuthorHash: p.AuthorHash,
	}
}
