package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anongrove/grove-backend/internal/common"
	"github.com/anongrove/grove-backend/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// shared-cache in-memory DB, one per test; busy_timeout goes in the
	// DSN so every pooled connection gets it
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Post{}, &domain.PostHistory{}))
	return db
}

func submitN(t *testing.T, repo PostRepository, n int) []*domain.Post {
	t.Helper()

	ctx := context.Background()
	posts := make([]*domain.Post, n)
	for i := range posts {
		p := domain.NewPost(fmt.Sprintf("title %d", i+1), fmt.Sprintf("content %d", i+1), "daily")
		require.NoError(t, repo.Create(ctx, p))
		posts[i] = p
	}
	return posts
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	repo := NewPostRepository(newTestDB(t))
	posts := submitN(t, repo, 3)

	assert.Less(t, posts[0].ID, posts[1].ID)
	assert.Less(t, posts[1].ID, posts[2].ID)
	for _, p := range posts {
		assert.Equal(t, domain.StatusPending, p.Status)
		assert.Nil(t, p.Number)
	}
}

func TestAcceptNumbersAreGapless(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	posts := submitN(t, repo, 5)

	// interleave rejects and deletes; they must not consume numbers
	first, err := repo.Accept(ctx, posts[0].ID, "https://fb.example/1")
	require.NoError(t, err)

	posts[1].Status = domain.StatusRejected
	posts[1].Reason = "off topic"
	require.NoError(t, repo.Save(ctx, posts[1]))

	second, err := repo.Accept(ctx, posts[2].ID, "https://fb.example/2")
	require.NoError(t, err)

	posts[3].Status = domain.StatusDeleted
	require.NoError(t, repo.Save(ctx, posts[3]))

	third, err := repo.Accept(ctx, posts[4].ID, "")
	require.NoError(t, err)

	require.NotNil(t, first.Number)
	require.NotNil(t, second.Number)
	require.NotNil(t, third.Number)
	assert.Equal(t, uint64(1), *first.Number)
	assert.Equal(t, uint64(2), *second.Number)
	assert.Equal(t, uint64(3), *third.Number)
	assert.Equal(t, domain.StatusAccepted, first.Status)
	assert.Equal(t, "https://fb.example/1", first.FbLink)
}

func TestAcceptInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	posts := submitN(t, repo, 3)

	_, err := repo.Accept(ctx, posts[0].ID, "")
	require.NoError(t, err)
	_, err = repo.Accept(ctx, posts[0].ID, "")
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	posts[1].Status = domain.StatusDeleted
	require.NoError(t, repo.Save(ctx, posts[1]))
	_, err = repo.Accept(ctx, posts[1].ID, "")
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	posts[2].Status = domain.StatusRejected
	posts[2].Reason = "nope"
	require.NoError(t, repo.Save(ctx, posts[2]))
	_, err = repo.Accept(ctx, posts[2].ID, "")
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	_, err = repo.Accept(ctx, 9999, "")
	assert.ErrorIs(t, err, common.ErrPostNotFound)
}

func TestEditAppendsLedgerInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	post := submitN(t, repo, 1)[0]

	require.NoError(t, repo.Edit(ctx, post, "second draft", time.Now()))
	require.NoError(t, repo.Edit(ctx, post, "third draft", time.Now()))

	assert.Equal(t, "third draft", post.Content)

	entries, err := repo.History(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// each entry is the content immediately before its edit
	assert.Equal(t, "content 1", entries[0].Content)
	assert.Equal(t, "second draft", entries[1].Content)
}

func TestEditStaleVersionLeavesNoLedgerEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	post := submitN(t, repo, 1)[0]

	stale := *post
	require.NoError(t, repo.Edit(ctx, post, "second draft", time.Now()))

	err := repo.Edit(ctx, &stale, "lost update", time.Now())
	assert.ErrorIs(t, err, common.ErrConcurrentModified)

	// the rolled-back edit must not leak a ledger entry
	entries, err := repo.History(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	post := submitN(t, repo, 1)[0]

	stale := *post
	post.Status = domain.StatusDeleted
	require.NoError(t, repo.Save(ctx, post))

	stale.Status = domain.StatusRejected
	stale.Reason = "too late"
	assert.ErrorIs(t, repo.Save(ctx, &stale), common.ErrConcurrentModified)
}

func TestFindByAuthorHash(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	posts := submitN(t, repo, 2)

	found, err := repo.FindByAuthorHash(ctx, posts[1].AuthorHash)
	require.NoError(t, err)
	assert.Equal(t, posts[1].ID, found.ID)

	_, err = repo.FindByAuthorHash(ctx, "no-such-hash")
	assert.ErrorIs(t, err, common.ErrPostNotFound)
}

func TestModeratorDefaultPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	posts := submitN(t, repo, 5)

	page1, err := repo.List(ctx, ListQuery{Intent: IntentModeratorDefault, Count: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, posts[0].ID, page1[0].ID)
	assert.Equal(t, posts[1].ID, page1[1].ID)

	page2, err := repo.List(ctx, ListQuery{Intent: IntentModeratorDefault, Count: 2, Boundary: page1[1].ID})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, posts[2].ID, page2[0].ID)
	assert.Equal(t, posts[3].ID, page2[1].ID)

	page3, err := repo.List(ctx, ListQuery{Intent: IntentModeratorDefault, Count: 2, Boundary: page2[1].ID})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, posts[4].ID, page3[0].ID)
}

func TestModeratorFilteredListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	posts := submitN(t, repo, 5)

	_, err := repo.Accept(ctx, posts[1].ID, "")
	require.NoError(t, err)
	_, err = repo.Accept(ctx, posts[3].ID, "")
	require.NoError(t, err)

	got, err := repo.List(ctx, ListQuery{
		Intent: IntentModeratorFiltered,
		Count:  10,
		Status: domain.StatusAccepted,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, posts[3].ID, got[0].ID)
	assert.Equal(t, posts[1].ID, got[1].ID)
}

func TestPublicListingAcceptedOnlyByNumberDesc(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	posts := submitN(t, repo, 4)

	_, err := repo.Accept(ctx, posts[0].ID, "") // number 1
	require.NoError(t, err)
	_, err = repo.Accept(ctx, posts[2].ID, "") // number 2
	require.NoError(t, err)

	posts[1].Status = domain.StatusRejected
	posts[1].Reason = "spam"
	require.NoError(t, repo.Save(ctx, posts[1]))
	// posts[3] stays pending

	got, err := repo.List(ctx, ListQuery{Intent: IntentPublic, Count: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), *got[0].Number)
	assert.Equal(t, uint64(1), *got[1].Number)

	// resume below number 2
	got, err = repo.List(ctx, ListQuery{Intent: IntentPublic, Count: 10, Boundary: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), *got[0].Number)
}

func TestPublicListingTagFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))

	daily := domain.NewPost("", "daily content", "daily")
	require.NoError(t, repo.Create(ctx, daily))
	love := domain.NewPost("", "love content", "love")
	require.NoError(t, repo.Create(ctx, love))

	_, err := repo.Accept(ctx, daily.ID, "")
	require.NoError(t, err)
	_, err = repo.Accept(ctx, love.ID, "")
	require.NoError(t, err)

	got, err := repo.List(ctx, ListQuery{Intent: IntentPublic, Count: 10, Tag: "love"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "love content", got[0].Content)
}

func TestListEmptyCollection(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))

	for _, intent := range []ListIntent{IntentModeratorDefault, IntentModeratorFiltered, IntentPublic} {
		got, err := repo.List(ctx, ListQuery{Intent: intent, Count: 10, Status: domain.StatusPending})
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestConcurrentAcceptsNeverShareANumber(t *testing.T) {
	ctx := context.Background()
	repo := NewPostRepository(newTestDB(t))
	posts := submitN(t, repo, 8)

	var wg sync.WaitGroup
	numbers := make(chan uint64, len(posts))
	for _, p := range posts {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			// retry whole acceptance on a lost numbering race, as the
			// service does
			for {
				accepted, err := repo.Accept(ctx, id, "")
				if err == nil {
					numbers <- *accepted.Number
					return
				}
				if !errorsIsRetryable(err) {
					t.Errorf("accept %d: %v", id, err)
					return
				}
			}
		}(p.ID)
	}
	wg.Wait()
	close(numbers)

	seen := make(map[uint64]bool)
	for n := range numbers {
		assert.False(t, seen[n], "number %d assigned twice", n)
		seen[n] = true
	}
	require.Len(t, seen, len(posts))
	// gapless: exactly 1..n
	for n := uint64(1); n <= uint64(len(posts)); n++ {
		assert.True(t, seen[n], "number %d missing", n)
	}
}

func errorsIsRetryable(err error) bool {
	return errors.Is(err, common.ErrNumberingConflict) ||
		errors.Is(err, common.ErrConcurrentModified) ||
		errors.Is(err, common.ErrStoreUnavailable)
}
