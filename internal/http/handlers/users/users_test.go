package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/models"
	userservice "github.com/magabrotheeeer/storyflow/internal/services/users"
	"github.com/magabrotheeeer/storyflow/internal/storage"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Create(ctx context.Context, user models.User) (userservice.CreateResult, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(userservice.CreateResult), args.Error(1)
}

func (m *ServiceMock) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *ServiceMock) Get(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) IsAdmin(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *ServiceMock) Promote(ctx context.Context, id string) (storage.UpdateResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(storage.UpdateResult), args.Error(1)
}

func (m *ServiceMock) MarkPremium(ctx context.Context, email string) (storage.UpdateResult, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(storage.UpdateResult), args.Error(1)
}

func (m *ServiceMock) ClearPremium(ctx context.Context, email string) (storage.UpdateResult, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(storage.UpdateResult), args.Error(1)
}

func (m *ServiceMock) Delete(ctx context.Context, id string) (storage.DeleteResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(storage.DeleteResult), args.Error(1)
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*ServiceMock)
		wantStatus int
		wantBody   string
	}{
		{
			name: "new user",
			body: `{"email":"a@x.io","name":"Ann","photoURL":"p.png"}`,
			setup: func(m *ServiceMock) {
				m.On("Create", mock.Anything, models.User{Email: "a@x.io", Name: "Ann", PhotoURL: "p.png"}).
					Return(userservice.CreateResult{InsertedID: strPtr("u1")}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"insertedId":"u1"}`,
		},
		{
			name: "existing user",
			body: `{"email":"a@x.io"}`,
			setup: func(m *ServiceMock) {
				m.On("Create", mock.Anything, models.User{Email: "a@x.io"}).
					Return(userservice.CreateResult{Message: userservice.MessageUserExists}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"message":"User already exists","insertedId":null}`,
		},
		{
			name:       "bad email",
			body:       `{"email":"nope"}`,
			setup:      func(*ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"status":"Error","error":"field Email must be a valid email"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setup(svc)
			h := New(sl.Discard(), svc)

			w := httptest.NewRecorder()
			h.Create(w, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestGet(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Get", mock.Anything, "u1").Return(&models.User{ID: "u1", Email: "a@x.io", Role: models.RoleAdmin}, nil)
	svc.On("Get", mock.Anything, "bad").Return(nil, models.ErrInvalidID)
	h := New(sl.Discard(), svc)

	w := httptest.NewRecorder()
	h.Get(w, withParam(httptest.NewRequest(http.MethodGet, "/users/u1", nil), "id", "u1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"_id":"u1","email":"a@x.io","role":"admin","premiumTaken":null}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Get(w, withParam(httptest.NewRequest(http.MethodGet, "/users/bad", nil), "id", "bad"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestList(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("List", mock.Anything).Return([]models.User{}, nil)
	h := New(sl.Discard(), svc)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/users", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAdminStatus(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("IsAdmin", mock.Anything, "boss@x.io").Return(true, nil)
	h := New(sl.Discard(), svc)

	w := httptest.NewRecorder()
	h.AdminStatus(w, withParam(httptest.NewRequest(http.MethodGet, "/users/admin/boss@x.io", nil), "email", "boss@x.io"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"admin":true}`, w.Body.String())
}

func TestUpdates(t *testing.T) {
	tests := []struct {
		name       string
		param      string
		value      string
		setup      func(*ServiceMock)
		call       func(*Handler) http.HandlerFunc
		wantStatus int
		wantBody   string
	}{
		{
			name:  "promote",
			param: "id", value: "u1",
			setup: func(m *ServiceMock) {
				m.On("Promote", mock.Anything, "u1").Return(storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
			},
			call:       func(h *Handler) http.HandlerFunc { return h.Promote },
			wantStatus: http.StatusOK,
			wantBody:   `{"matchedCount":1,"modifiedCount":1}`,
		},
		{
			name:  "promote unknown",
			param: "id", value: "u9",
			setup: func(m *ServiceMock) {
				m.On("Promote", mock.Anything, "u9").Return(storage.UpdateResult{}, models.ErrNotFound)
			},
			call:       func(h *Handler) http.HandlerFunc { return h.Promote },
			wantStatus: http.StatusNotFound,
			wantBody:   `{"status":"Error","error":"not found"}`,
		},
		{
			name:  "mark premium",
			param: "email", value: "a@x.io",
			setup: func(m *ServiceMock) {
				m.On("MarkPremium", mock.Anything, "a@x.io").Return(storage.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
			},
			call:       func(h *Handler) http.HandlerFunc { return h.MarkPremium },
			wantStatus: http.StatusOK,
			wantBody:   `{"matchedCount":1,"modifiedCount":1}`,
		},
		{
			name:  "clear premium",
			param: "email", value: "a@x.io",
			setup: func(m *ServiceMock) {
				m.On("ClearPremium", mock.Anything, "a@x.io").Return(storage.UpdateResult{MatchedCount: 1}, nil)
			},
			call:       func(h *Handler) http.HandlerFunc { return h.ClearPremium },
			wantStatus: http.StatusOK,
			wantBody:   `{"matchedCount":1,"modifiedCount":0}`,
		},
		{
			name:  "delete",
			param: "id", value: "u1",
			setup: func(m *ServiceMock) {
				m.On("Delete", mock.Anything, "u1").Return(storage.DeleteResult{DeletedCount: 1}, nil)
			},
			call:       func(h *Handler) http.HandlerFunc { return h.Delete },
			wantStatus: http.StatusOK,
			wantBody:   `{"deletedCount":1}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setup(svc)
			h := New(sl.Discard(), svc)

			w := httptest.NewRecorder()
			tt.call(h)(w, withParam(httptest.NewRequest(http.MethodPatch, "/", nil), tt.param, tt.value))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
