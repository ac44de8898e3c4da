package postgres

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/storyflow/internal/migrations"
	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

// setupTestStorage поднимает PostgreSQL в контейнере и накатывает миграции.
func setupTestStorage(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("storyflow"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, filepath.Join(root, "migrations")))

	return s, func() {
		_ = s.Close(ctx)
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
}

func TestUsers(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	res, err := s.InsertUser(ctx, models.User{Email: "ann@example.com", Name: "Ann"})
	require.NoError(t, err)
	require.NotEmpty(t, res.InsertedID)

	_, err = s.InsertUser(ctx, models.User{Email: "ann@example.com"})
	require.ErrorIs(t, err, models.ErrAlreadyExists)

	u, err := s.FindUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNone, u.Role)
	assert.Nil(t, u.PremiumTaken)

	upd, err := s.SetUserRole(ctx, res.InsertedID, models.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, upd.MatchedCount)

	byID, err := s.FindUserByID(ctx, res.InsertedID)
	require.NoError(t, err)
	assert.True(t, byID.Role.IsAdmin())

	taken := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	_, err = s.SetPremiumTaken(ctx, "ann@example.com", &taken)
	require.NoError(t, err)

	expired, err := s.FindUsers(ctx, query.New(query.Range(query.FieldPremiumTaken, nil, taken.Add(time.Minute))))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.True(t, taken.Equal(*expired[0].PremiumTaken))

	upd, err = s.ClearPremiumTakenBefore(ctx, "ann@example.com", taken)
	require.NoError(t, err)
	assert.EqualValues(t, 0, upd.MatchedCount, "a grant taken exactly at the cutoff must survive")

	upd, err = s.ClearPremiumTakenBefore(ctx, "ann@example.com", taken.Add(time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 1, upd.MatchedCount)
	u, err = s.FindUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Nil(t, u.PremiumTaken)

	_, err = s.FindUserByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.FindUserByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, models.ErrInvalidID)

	del, err := s.DeleteUser(ctx, res.InsertedID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, del.DeletedCount)

	del, err = s.DeleteUser(ctx, res.InsertedID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, del.DeletedCount)
}

func TestArticles(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	posted := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	insert := func(title string, tags []string, status models.ArticleStatus, views int64) string {
		res, err := s.InsertArticle(ctx, models.Article{
			Title: title, Publisher: "Daily", Tags: tags, AuthorEmail: "ann@example.com",
			PostedDate: posted, Status: status, Views: views,
		})
		require.NoError(t, err)
		return res.InsertedID
	}

	ids := make([]string, 0, 8)
	for i := range 8 {
		ids = append(ids, insert("Go tips", []string{"go"}, models.StatusApproved, int64(i)))
	}
	pendingID := insert("Hidden Go", []string{"go", "draft"}, models.StatusPending, 100)

	trending, err := s.FindArticles(ctx, query.New(query.Eq(query.FieldStatus, models.StatusApproved)).
		SortBy(query.FieldViews, true).WithLimit(6))
	require.NoError(t, err)
	require.Len(t, trending, 6)
	for i, a := range trending {
		assert.Equal(t, models.StatusApproved, a.Status)
		if i > 0 {
			assert.GreaterOrEqual(t, trending[i-1].Views, a.Views)
		}
	}

	found, err := s.FindArticles(ctx, query.New(query.Contains(query.FieldTitle, "hidden")))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, pendingID, found[0].ID)

	tagged, err := s.FindArticles(ctx, query.New(query.In(query.FieldTags, "draft", "nothing")))
	require.NoError(t, err)
	require.Len(t, tagged, 1)

	n, err := s.CountArticles(ctx, query.New(query.Eq(query.FieldAuthorEmail, "ann@example.com")))
	require.NoError(t, err)
	assert.EqualValues(t, 9, n)

	_, err = s.SetArticleStatus(ctx, pendingID, models.StatusDeclined, "spam")
	require.NoError(t, err)
	a, err := s.FindArticleByID(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, "spam", a.DeclinedReason)

	_, err = s.SetArticleStatus(ctx, pendingID, models.StatusApproved, "ignored")
	require.NoError(t, err)
	a, err = s.FindArticleByID(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, a.Status)
	assert.Empty(t, a.DeclinedReason)

	edited := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.ReplaceArticle(ctx, ids[0], models.ArticleEdit{Title: "New", Tags: []string{"x"}}, edited)
	require.NoError(t, err)
	a, err = s.FindArticleByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "New", a.Title)
	assert.Equal(t, []string{"x"}, a.Tags)
	require.NotNil(t, a.UpdatedAt)
	assert.True(t, posted.Equal(a.PostedDate))

	upd, err := s.SetArticlePremium(ctx, "00000000-0000-0000-0000-000000000000", true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, upd.MatchedCount)
}

func TestIncrementViewsIsAtomic(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	res, err := s.InsertArticle(ctx, models.Article{
		Title: "t", AuthorEmail: "a@b.c", PostedDate: time.Now(), Status: models.StatusApproved,
	})
	require.NoError(t, err)

	const calls = 50
	var wg sync.WaitGroup
	for range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementArticleViews(ctx, res.InsertedID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := s.FindArticleByID(ctx, res.InsertedID)
	require.NoError(t, err)
	assert.EqualValues(t, calls, a.Views)
}

func TestPublishers(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.InsertPublisher(ctx, models.Publisher{Name: "Zeta", Logo: "z.png"})
	require.NoError(t, err)
	_, err = s.InsertPublisher(ctx, models.Publisher{Name: "Alpha", Logo: "a.png"})
	require.NoError(t, err)

	list, err := s.ListPublishers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
}
