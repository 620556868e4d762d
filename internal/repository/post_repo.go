package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anongrove/grove-backend/internal/common"
	"github.com/anongrove/grove-backend/internal/domain"
)

// ListIntent selects which predicate/ordering pair the listing query uses.
// Keeping the three policies as an enum avoids ad hoc mutation of a shared
// filter object.
type ListIntent int

const (
	// IntentModeratorDefault 관리자는 오래된 글부터 (접수 순 검토)
	IntentModeratorDefault ListIntent = iota
	// IntentModeratorFiltered 처리된 글을 볼 때는 최신 글부터
	IntentModeratorFiltered
	// IntentPublic 공개 피드는 채택 번호 내림차순
	IntentPublic
)

// ListQuery one page of the listing engine. Boundary is the decoded cursor:
// a store id for the moderator intents, an accepted number for the public
// intent. Zero means no boundary (first page) — it is never a decoded value.
type ListQuery struct {
	Intent   ListIntent
	Count    int
	Boundary uint64
	Status   domain.PostStatus // moderator status filter, empty = all
	Tag      string            // public tag filter, empty = all
}

// PostRepository post data access
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, id uint64) (*domain.Post, error)
	FindByAuthorHash(ctx context.Context, hash string) (*domain.Post, error)
	// Save writes the mutable fields guarded by the optimistic version
	// column; a stale version returns ErrConcurrentModified.
	Save(ctx context.Context, post *domain.Post) error
	// Accept atomically assigns the next publication number inside one
	// transaction. A lost race on the number surfaces as
	// ErrNumberingConflict and is safe to retry whole.
	Accept(ctx context.Context, id uint64, fbLink string) (*domain.Post, error)
	// Edit appends the pre-edit content to the ledger and swaps the
	// content in the same transaction.
	Edit(ctx context.Context, post *domain.Post, newContent string, editedAt time.Time) error
	History(ctx context.Context, postID uint64) ([]domain.PostHistory, error)
	List(ctx context.Context, q ListQuery) ([]*domain.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// storeErr maps driver errors onto the typed errors callers match on.
// Anything that is not a not-found or duplicate-key keeps the store error in
// the chain so retry logic can see it.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrPostNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrNumberingConflict
	default:
		return fmt.Errorf("%s: %w", op, errors.Join(common.ErrStoreUnavailable, err))
	}
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return storeErr("create post", err)
	}
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id uint64) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, storeErr("find post", err)
	}
	return &post, nil
}

func (r *postRepository) FindByAuthorHash(ctx context.Context, hash string) (*domain.Post, error) {
	var post domain.Post
	err := r.db.WithContext(ctx).Where("author_hash = ?", hash).First(&post).Error
	if err != nil {
		return nil, storeErr("find post by hash", err)
	}
	return &post, nil
}

// mutableColumns the fields lifecycle transitions may change
func mutableColumns(post *domain.Post) map[string]interface{} {
	return map[string]interface{}{
		"content": post.Content,
		"status":  post.Status,
		"reason":  post.Reason,
		"fb_link": post.FbLink,
		"number":  post.Number,
		"version": post.Version + 1,
	}
}

func (r *postRepository) Save(ctx context.Context, post *domain.Post) error {
	res := r.db.WithContext(ctx).Model(&domain.Post{}).
		Where("id = ? AND version = ?", post.ID, post.Version).
		Updates(mutableColumns(post))
	if res.Error != nil {
		return storeErr("save post", res.Error)
	}
	if res.RowsAffected == 0 {
		// row exists but version moved on, or the post vanished
		return common.ErrConcurrentModified
	}
	post.Version++
	return nil
}

func (r *postRepository) Accept(ctx context.Context, id uint64, fbLink string) (*domain.Post, error) {
	var accepted *domain.Post

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.Post
		// 같은 글에 대한 동시 채택은 행 잠금으로 직렬화.
		// sqlite has no row locks; there the unique index on number plus
		// the version guard carry the whole race.
		find := tx
		if tx.Dialector.Name() != "sqlite" {
			find = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := find.First(&post, id).Error; err != nil {
			return storeErr("accept: find post", err)
		}
		if !post.CanAccept() {
			return common.ErrInvalidTransition
		}

		var maxNumber *uint64
		if err := tx.Model(&domain.Post{}).
			Select("MAX(number)").Scan(&maxNumber).Error; err != nil {
			return storeErr("accept: max number", err)
		}
		next := uint64(1)
		if maxNumber != nil {
			next = *maxNumber + 1
		}

		post.Status = domain.StatusAccepted
		post.FbLink = fbLink
		post.Number = &next

		res := tx.Model(&domain.Post{}).
			Where("id = ? AND version = ?", post.ID, post.Version).
			Updates(mutableColumns(&post))
		if res.Error != nil {
			// 번호 경합은 유니크 인덱스가 잡아냄 → 호출자가 재시도
			return storeErr("accept: save post", res.Error)
		}
		if res.RowsAffected == 0 {
			return common.ErrConcurrentModified
		}
		post.Version++
		accepted = &post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (r *postRepository) Edit(ctx context.Context, post *domain.Post, newContent string, editedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := &domain.PostHistory{
			PostID:   post.ID,
			Content:  post.Content, // snapshot of the content before the edit
			EditedAt: editedAt,
		}
		if err := tx.Create(entry).Error; err != nil {
			return storeErr("edit: append history", err)
		}

		res := tx.Model(&domain.Post{}).
			Where("id = ? AND version = ?", post.ID, post.Version).
			Updates(map[string]interface{}{
				"content": newContent,
				"version": post.Version + 1,
			})
		if res.Error != nil {
			return storeErr("edit: save post", res.Error)
		}
		if res.RowsAffected == 0 {
			// racing transition won; roll the ledger entry back too
			return common.ErrConcurrentModified
		}

		post.Content = newContent
		post.Version++
		return nil
	})
}

func (r *postRepository) History(ctx context.Context, postID uint64) ([]domain.PostHistory, error) {
	var entries []domain.PostHistory
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC"). // ledger order = append order
		Find(&entries).Error
	if err != nil {
		return nil, storeErr("post history", err)
	}
	return entries, nil
}

func (r *postRepository) List(ctx context.Context, q ListQuery) ([]*domain.Post, error) {
	db := r.db.WithContext(ctx).Model(&domain.Post{})

	switch q.Intent {
	case IntentPublic:
		// 공개 피드: 채택된 글만, 번호 내림차순
		db = db.Where("status = ?", domain.StatusAccepted)
		if q.Tag != "" {
			db = db.Where("tag = ?", q.Tag)
		}
		if q.Boundary > 0 {
			db = db.Where("number < ?", q.Boundary)
		}
		db = db.Order("number DESC")

	case IntentModeratorFiltered:
		db = db.Where("status = ?", q.Status)
		if q.Boundary > 0 {
			db = db.Where("id < ?", q.Boundary)
		}
		db = db.Order("id DESC")

	default: // IntentModeratorDefault
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		if q.Boundary > 0 {
			db = db.Where("id > ?", q.Boundary)
		}
		db = db.Order("id ASC")
	}

	var posts []*domain.Post
	if err := db.Limit(q.Count).Find(&posts).Error; err != nil {
		return nil, storeErr("list posts", err)
	}
	return posts, nil
}
