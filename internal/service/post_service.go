package service

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anongrove/grove-backend/internal/common"
	"github.com/anongrove/grove-backend/internal/domain"
	"github.com/anongrove/grove-backend/internal/repository"
	"github.com/anongrove/grove-backend/pkg/cache"
	"github.com/anongrove/grove-backend/pkg/cursor"
	"github.com/anongrove/grove-backend/pkg/logger"
)

const (
	// DefaultPageSize default listing page size
	DefaultPageSize = 10
	// MaxPageSize hard cap on a single listing page
	MaxPageSize = 100

	// acceptRetries how many times a lost numbering race is retried whole
	acceptRetries = 3
)

// ListOptions parameters of the listing engine. Cursor is the opaque token
// from the previous page's meta: base64 store id for moderators, the literal
// last-seen number for the public feed.
type ListOptions struct {
	Count     int
	Cursor    string
	Moderator bool
	Status    domain.PostStatus // moderator-only status filter
	Tag       string            // public-only tag filter
}

// PostService business logic for the submission lifecycle and listing
type PostService interface {
	Submit(ctx context.Context, req *domain.SubmitPostRequest) (*domain.AuthorView, error)
	Accept(ctx context.Context, id uint64, fbLink string) (*domain.Post, error)
	Reject(ctx context.Context, id uint64, reason string) (*domain.Post, error)
	Delete(ctx context.Context, id uint64) error
	Edit(ctx context.Context, id uint64, hash, newContent string) (*domain.AuthorView, error)
	// Get returns the full record for moderators; readers get GetPublic
	Get(ctx context.Context, id uint64) (*domain.Post, error)
	GetPublic(ctx context.Context, id uint64) (*domain.PublicView, error)
	GetByAuthorHash(ctx context.Context, hash string) (*domain.AuthorView, error)
	History(ctx context.Context, id uint64) ([]domain.PostHistory, error)
	// List returns one page plus the cursor that resumes it; an empty
	// next cursor means the page was not full.
	List(ctx context.Context, opts ListOptions) ([]*domain.Post, string, error)
}

type postService struct {
	repo  repository.PostRepository
	cache cache.Service
}

// NewPostService creates a new PostService. cache may be nil.
func NewPostService(repo repository.PostRepository, cacheService cache.Service) PostService {
	return &postService{repo: repo, cache: cacheService}
}

// Submit validates and stores a new Pending submission, returning the author
// projection so the submitter can keep their ownership token
func (s *postService) Submit(ctx context.Context, req *domain.SubmitPostRequest) (*domain.AuthorView, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", common.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Tag) == "" {
		return nil, fmt.Errorf("%w: tag is required", common.ErrInvalidInput)
	}

	post := domain.NewPost(strings.TrimSpace(req.Title), req.Content, strings.TrimSpace(req.Tag))
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post.ToAuthor(), nil
}

// Accept publishes a pending submission: assigns the next gapless number,
// stores the publication link and invalidates the public feed cache.
// A lost numbering race is retried whole, never partially applied.
func (s *postService) Accept(ctx context.Context, id uint64, fbLink string) (*domain.Post, error) {
	var (
		post *domain.Post
		err  error
	)
	for attempt := 0; attempt < acceptRetries; attempt++ {
		post, err = s.repo.Accept(ctx, id, fbLink)
		if err == nil {
			break
		}
		if !errors.Is(err, common.ErrNumberingConflict) {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Info().
		Uint64("post_id", post.ID).
		Uint64("number", *post.Number).
		Msg("post accepted")

	s.invalidateFeed(ctx)
	return post, nil
}

// Reject moves a pending submission to Rejected with a mandatory reason;
// status and reason change in one write
func (s *postService) Reject(ctx context.Context, id uint64, reason string) (*domain.Post, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", common.ErrInvalidInput)
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.CanReject() {
		return nil, common.ErrInvalidTransition
	}

	post.Status = domain.StatusRejected
	post.Reason = strings.TrimSpace(reason)
	if err := s.repo.Save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete is a terminal soft-delete; the row and its edit ledger survive for
// audit. reason/fb_link/number from earlier transitions are kept as-is.
func (s *postService) Delete(ctx context.Context, id uint64) error {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !post.CanDelete() {
		return common.ErrInvalidTransition
	}

	wasPublic := post.Status == domain.StatusAccepted
	post.Status = domain.StatusDeleted
	if err := s.repo.Save(ctx, post); err != nil {
		return err
	}

	if wasPublic {
		s.invalidateFeed(ctx)
	}
	return nil
}

// Edit replaces the content after snapshotting the old one into the ledger.
// The ownership hash stands in for authentication.
func (s *postService) Edit(ctx context.Context, id uint64, hash, newContent string) (*domain.AuthorView, error) {
	if strings.TrimSpace(newContent) == "" {
		return nil, fmt.Errorf("%w: content is required", common.ErrInvalidInput)
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(post.AuthorHash), []byte(hash)) {
		return nil, common.ErrForbidden
	}
	if !post.CanEdit() {
		return nil, common.ErrInvalidTransition
	}

	if err := s.repo.Edit(ctx, post, newContent, time.Now()); err != nil {
		return nil, err
	}
	if post.Status == domain.StatusAccepted {
		s.invalidateFeed(ctx)
	}
	return post.ToAuthor(), nil
}

func (s *postService) Get(ctx context.Context, id uint64) (*domain.Post, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *postService) GetPublic(ctx context.Context, id uint64) (*domain.PublicView, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return post.ToPublic(), nil
}

// GetByAuthorHash lets an anonymous author retrieve their submission with
// nothing but the token handed out at submit time
func (s *postService) GetByAuthorHash(ctx context.Context, hash string) (*domain.AuthorView, error) {
	if hash == "" {
		return nil, fmt.Errorf("%w: hash is required", common.ErrInvalidInput)
	}
	post, err := s.repo.FindByAuthorHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return post.ToAuthor(), nil
}

func (s *postService) History(ctx context.Context, id uint64) ([]domain.PostHistory, error) {
	// surface NotFound for a bogus id instead of an empty ledger
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

// List runs one page of the listing engine. Moderators page the queue in
// submission order by default and flip to newest-first when they filter to an
// already-decided status; the public feed is accepted-only by number
// descending.
func (s *postService) List(ctx context.Context, opts ListOptions) ([]*domain.Post, string, error) {
	count := opts.Count
	if count < 1 {
		count = DefaultPageSize
	}
	if count > MaxPageSize {
		count = MaxPageSize
	}

	if opts.Status != "" && !domain.ValidStatus(opts.Status) {
		return nil, "", fmt.Errorf("%w: unknown status %q", common.ErrInvalidInput, opts.Status)
	}

	query, err := s.buildQuery(opts, count)
	if err != nil {
		return nil, "", err
	}

	// 공개 피드 첫 페이지는 짧게 캐시
	cacheable := query.Intent == repository.IntentPublic &&
		query.Boundary == 0 && count == DefaultPageSize
	if cacheable {
		if posts, ok := s.cachedFeed(ctx, opts.Tag); ok {
			return posts, s.nextCursor(posts, count, query.Intent), nil
		}
	}

	posts, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, "", err
	}

	if cacheable && s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.SetFeed(ctx, opts.Tag, posts); err != nil {
			logger.Warn("feed cache set failed: %v", err)
		}
	}

	return posts, s.nextCursor(posts, count, query.Intent), nil
}

// buildQuery decodes the cursor under the strict policy: a token that fails
// to decode is an error, never silently treated as "first page"
func (s *postService) buildQuery(opts ListOptions, count int) (repository.ListQuery, error) {
	q := repository.ListQuery{Count: count}

	if !opts.Moderator {
		q.Intent = repository.IntentPublic
		q.Tag = opts.Tag
		if opts.Cursor != "" {
			// the public cursor is the literal last-seen number
			number, err := strconv.ParseUint(opts.Cursor, 10, 64)
			if err != nil || number == 0 {
				return q, fmt.Errorf("%w: %q", common.ErrInvalidCursor, opts.Cursor)
			}
			q.Boundary = number
		}
		return q, nil
	}

	q.Status = opts.Status
	if opts.Status != "" && opts.Status != domain.StatusPending {
		q.Intent = repository.IntentModeratorFiltered
	} else {
		q.Intent = repository.IntentModeratorDefault
	}
	if opts.Cursor != "" {
		id, err := cursor.DecodeID(opts.Cursor)
		if err != nil {
			return q, fmt.Errorf("%w: %q", common.ErrInvalidCursor, opts.Cursor)
		}
		q.Boundary = id
	}
	return q, nil
}

// nextCursor derives the resume token from the last post of a full page
func (s *postService) nextCursor(posts []*domain.Post, count int, intent repository.ListIntent) string {
	if len(posts) < count || len(posts) == 0 {
		return ""
	}
	last := posts[len(posts)-1]
	if intent == repository.IntentPublic {
		if last.Number == nil {
			return ""
		}
		return strconv.FormatUint(*last.Number, 10)
	}
	return last.CursorID()
}

func (s *postService) cachedFeed(ctx context.Context, tag string) ([]*domain.Post, bool) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return nil, false
	}
	data, err := s.cache.GetFeed(ctx, tag)
	if err != nil {
		return nil, false
	}
	var posts []*domain.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, false
	}
	return posts, true
}

func (s *postService) invalidateFeed(ctx context.Context) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return
	}
	if err := s.cache.InvalidateFeed(ctx); err != nil {
		logger.Warn("feed cache invalidation failed: %v", err)
	}
}
