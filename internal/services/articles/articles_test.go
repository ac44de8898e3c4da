package articles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/storage"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) InsertArticle(ctx context.Context, article models.Article) (storage.InsertResult, error) {
	args := m.Called(ctx, article)
	return args.Get(0).(storage.InsertResult), args.Error(1)
}
func (m *RepoMock) FindArticleByID(ctx context.Context, id string) (*models.Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Article), args.Error(1)
}
func (m *RepoMock) FindArticles(ctx context.Context, q query.Query) ([]models.Article, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Article), args.Error(1)
}
func (m *RepoMock) SetArticleStatus(ctx context.Context, id string, status models.ArticleStatus, reason string) (storage.UpdateResult, error) {
	args := m.Called(ctx, id, status, reason)
	return args.Get(0).(storage.UpdateResult), args.Error(1)
}
func (m *RepoMock) SetArticlePremium(ctx context.Context, id string, premium bool) (storage.UpdateResult, error) {
	args := m.Called(ctx, id, premium)
	return args.Get(0).(storage.UpdateResult), args.Error(1)
}
func (m *RepoMock) IncrementArticleViews(ctx context.Context, id string) (storage.UpdateResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(storage.UpdateResult), args.Error(1)
}
func (m *RepoMock) ReplaceArticle(ctx context.Context, id string, edit models.ArticleEdit, updatedAt time.Time) (storage.UpdateResult, error) {
	args := m.Called(ctx, id, edit, updatedAt)
	return args.Get(0).(storage.UpdateResult), args.Error(1)
}
func (m *RepoMock) DeleteArticle(ctx context.Context, id string) (storage.DeleteResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(storage.DeleteResult), args.Error(1)
}

type EntitlementMock struct{ mock.Mock }

func (m *EntitlementMock) CanSubmitArticle(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type AdminMock struct{ mock.Mock }

func (m *AdminMock) IsAdmin(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, event models.Event) error {
	return m.Called(ctx, event).Error(0)
}

var now = time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)

func newTestService(repo *RepoMock, ent *EntitlementMock, admins *AdminMock, events EventPublisher) *Service {
	s := NewService(repo, ent, admins, events, sl.Discard())
	s.now = func() time.Time { return now }
	return s
}

func TestCreate(t *testing.T) {
	repo := new(RepoMock)
	ent := new(EntitlementMock)
	ent.On("CanSubmitArticle", mock.Anything, "a@x.io").Return(true, nil)
	repo.On("InsertArticle", mock.Anything, mock.MatchedBy(func(a models.Article) bool {
		return a.Status == models.StatusPending &&
			a.Views == 0 &&
			a.PostedDate.Equal(now) &&
			a.AuthorEmail == "a@x.io" &&
			a.AuthorName == "Ann" &&
			a.Title == "Go" &&
			a.DeclinedReason == "" &&
			!a.IsPremium &&
			a.Tags != nil
	})).Return(storage.InsertResult{InsertedID: "art-1"}, nil)

	s := newTestService(repo, ent, nil, nil)
	res, err := s.Create(context.Background(), Author{Email: "a@x.io", Name: "Ann"}, models.ArticleEdit{Title: "Go"})

	require.NoError(t, err)
	assert.Equal(t, "art-1", res.InsertedID)
	repo.AssertExpectations(t)
}

func TestCreate_NotEntitled(t *testing.T) {
	repo := new(RepoMock)
	ent := new(EntitlementMock)
	ent.On("CanSubmitArticle", mock.Anything, "a@x.io").Return(false, nil)

	s := newTestService(repo, ent, nil, nil)
	_, err := s.Create(context.Background(), Author{Email: "a@x.io"}, models.ArticleEdit{Title: "Second"})

	assert.ErrorIs(t, err, models.ErrNotEntitled)
	repo.AssertNotCalled(t, "InsertArticle", mock.Anything, mock.Anything)
}

func TestTrending_Query(t *testing.T) {
	repo := new(RepoMock)
	want := query.New(query.Eq(query.FieldStatus, models.StatusApproved)).
		SortBy(query.FieldViews, true).
		WithLimit(TrendingLimit)
	repo.On("FindArticles", mock.Anything, want).Return([]models.Article{{ID: "1", Views: 10}}, nil)

	s := newTestService(repo, nil, nil, nil)
	got, err := s.Trending(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 1)
	repo.AssertExpectations(t)
}

func TestFilter_Query(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		f    Filter
		want query.Query
	}{
		{
			name: "empty filter still approved only",
			f:    Filter{},
			want: query.New(query.Eq(query.FieldStatus, models.StatusApproved)).
				SortBy(query.FieldPostedDate, true),
		},
		{
			name: "all fields",
			f:    Filter{Publisher: "BBC", Tags: []string{"go", "db"}, Title: "intro", From: &from},
			want: query.New(
				query.Eq(query.FieldStatus, models.StatusApproved),
				query.Eq(query.FieldPublisher, "BBC"),
				query.In(query.FieldTags, "go", "db"),
				query.Contains(query.FieldTitle, "intro"),
				query.Range(query.FieldPostedDate, from, nil),
			).SortBy(query.FieldPostedDate, true),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("FindArticles", mock.Anything, tt.want).Return([]models.Article{}, nil)

			s := newTestService(repo, nil, nil, nil)
			_, err := s.Filter(context.Background(), tt.f)

			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestReadQueries(t *testing.T) {
	tests := []struct {
		name string
		call func(s *Service) ([]models.Article, error)
		want query.Query
	}{
		{"list", func(s *Service) ([]models.Article, error) { return s.List(context.Background()) }, query.New()},
		{"status", func(s *Service) ([]models.Article, error) {
			return s.ByStatus(context.Background(), models.StatusDeclined)
		}, query.New(query.Eq(query.FieldStatus, models.StatusDeclined))},
		{"publisher", func(s *Service) ([]models.Article, error) {
			return s.ByPublisher(context.Background(), "BBC")
		}, query.New(query.Eq(query.FieldPublisher, "BBC"))},
		{"search", func(s *Service) ([]models.Article, error) {
			return s.Search(context.Background(), "GoLang")
		}, query.New(query.Contains(query.FieldTitle, "GoLang"))},
		{"author", func(s *Service) ([]models.Article, error) {
			return s.ByAuthor(context.Background(), "a@x.io")
		}, query.New(query.Eq(query.FieldAuthorEmail, "a@x.io"))},
		{"premium", func(s *Service) ([]models.Article, error) {
			return s.ByPremium(context.Background(), true)
		}, query.New(query.Eq(query.FieldIsPremium, true))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("FindArticles", mock.Anything, tt.want).Return([]models.Article{}, nil)

			_, err := tt.call(newTestService(repo, nil, nil, nil))

			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestSetStatus_PublishesEvent(t *testing.T) {
	repo := new(RepoMock)
	events := new(PublisherMock)
	repo.On("SetArticleStatus", mock.Anything, "art-1", models.StatusApproved, "").
		Return(storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	repo.On("FindArticleByID", mock.Anything, "art-1").
		Return(&models.Article{ID: "art-1", Title: "Go", AuthorEmail: "a@x.io"}, nil)
	events.On("Publish", mock.Anything, models.Event{
		Type:       models.EventArticleStatus,
		Email:      "a@x.io",
		ArticleID:  "art-1",
		Title:      "Go",
		Status:     models.StatusApproved,
		OccurredAt: now,
	}).Return(nil)

	s := newTestService(repo, nil, nil, events)
	_, err := s.SetStatus(context.Background(), "art-1", models.StatusApproved)

	require.NoError(t, err)
	events.AssertExpectations(t)
}

func TestDecline(t *testing.T) {
	repo := new(RepoMock)
	events := new(PublisherMock)
	repo.On("SetArticleStatus", mock.Anything, "art-1", models.StatusDeclined, "off-topic").
		Return(storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	repo.On("FindArticleByID", mock.Anything, "art-1").
		Return(&models.Article{ID: "art-1", AuthorEmail: "a@x.io"}, nil)
	events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	s := newTestService(repo, nil, nil, events)
	_, err := s.Decline(context.Background(), "art-1", "off-topic")

	require.NoError(t, err, "publish failures must not fail the update")
}

func TestSetStatus_NotFound(t *testing.T) {
	repo := new(RepoMock)
	events := new(PublisherMock)
	repo.On("SetArticleStatus", mock.Anything, "missing", models.StatusApproved, "").
		Return(storage.UpdateResult{}, nil)

	s := newTestService(repo, nil, nil, events)
	_, err := s.SetStatus(context.Background(), "missing", models.StatusApproved)

	assert.ErrorIs(t, err, models.ErrNotFound)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestView(t *testing.T) {
	repo := new(RepoMock)
	repo.On("IncrementArticleViews", mock.Anything, "art-1").
		Return(storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	repo.On("IncrementArticleViews", mock.Anything, "missing").
		Return(storage.UpdateResult{}, nil)

	s := newTestService(repo, nil, nil, nil)

	_, err := s.View(context.Background(), "art-1")
	require.NoError(t, err)

	_, err = s.View(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEdit(t *testing.T) {
	edit := models.ArticleEdit{Title: "New", Tags: []string{"go"}}
	tests := []struct {
		name    string
		caller  string
		isAdmin bool
		wantErr error
	}{
		{"owner", "owner@x.io", false, nil},
		{"admin", "admin@x.io", true, nil},
		{"stranger", "other@x.io", false, models.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			admins := new(AdminMock)
			repo.On("FindArticleByID", mock.Anything, "art-1").
				Return(&models.Article{ID: "art-1", AuthorEmail: "owner@x.io"}, nil)
			admins.On("IsAdmin", mock.Anything, tt.caller).Return(tt.isAdmin, nil)
			repo.On("ReplaceArticle", mock.Anything, "art-1", edit, now).
				Return(storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

			s := newTestService(repo, nil, admins, nil)
			_, err := s.Edit(context.Background(), tt.caller, "art-1", edit)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "ReplaceArticle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			repo.AssertCalled(t, "ReplaceArticle", mock.Anything, "art-1", edit, now)
		})
	}
}

func TestEdit_NotFound(t *testing.T) {
	repo := new(RepoMock)
	repo.On("FindArticleByID", mock.Anything, "missing").Return(nil, models.ErrNotFound)

	s := newTestService(repo, nil, new(AdminMock), nil)
	_, err := s.Edit(context.Background(), "a@x.io", "missing", models.ArticleEdit{})

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := new(RepoMock)
	repo.On("DeleteArticle", mock.Anything, "art-1").Return(storage.DeleteResult{DeletedCount: 1}, nil)
	repo.On("DeleteArticle", mock.Anything, "art-2").Return(storage.DeleteResult{}, nil)

	s := newTestService(repo, nil, nil, nil)

	_, err := s.Delete(context.Background(), "art-1")
	require.NoError(t, err)

	_, err = s.Delete(context.Background(), "art-2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
