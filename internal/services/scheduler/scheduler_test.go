package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/storyflow/internal/config"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/lock"
	"github.com/magabrotheeeer/storyflow/internal/models"
	"github.com/magabrotheeeer/storyflow/internal/services/entitlement"
	"github.com/magabrotheeeer/storyflow/internal/storage/query"
)

type MockUsers struct{ mock.Mock }

func (m *MockUsers) FindUsers(ctx context.Context, q query.Query) ([]models.User, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

type MockExpirer struct{ mock.Mock }

func (m *MockExpirer) Expire(ctx context.Context, user models.User, source string) (bool, error) {
	args := m.Called(ctx, user, source)
	return args.Bool(0), args.Error(1)
}

func (m *MockExpirer) GrantDuration() time.Duration {
	return 24 * time.Hour
}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(users *MockUsers, expirer *MockExpirer, locker Locker) *SchedulerService {
	s := NewSchedulerService(users, expirer, locker, time.Minute, time.Minute, sl.Discard())
	s.now = func() time.Time { return now }
	return s
}

func newLocker(t *testing.T) (*lock.Locker, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	l, err := lock.InitServer(context.Background(), config.RedisConnection{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestSweep(t *testing.T) {
	users := new(MockUsers)
	expirer := new(MockExpirer)
	t1 := now.Add(-48 * time.Hour)
	t2 := now.Add(-30 * time.Hour)
	t3 := now.Add(-25 * time.Hour)
	found := []models.User{
		{Email: "a@x.io", PremiumTaken: &t1},
		{Email: "b@x.io", PremiumTaken: &t2},
		{Email: "c@x.io", PremiumTaken: &t3},
	}
	users.On("FindUsers", mock.Anything,
		query.New(query.Range(query.FieldPremiumTaken, nil, now.Add(-24*time.Hour)))).Return(found, nil)
	expirer.On("Expire", mock.Anything, found[0], entitlement.SourceSweeper).Return(true, nil)
	expirer.On("Expire", mock.Anything, found[1], entitlement.SourceSweeper).Return(false, nil)
	expirer.On("Expire", mock.Anything, found[2], entitlement.SourceSweeper).Return(false, errors.New("db down"))

	l, mr := newLocker(t)
	s := newTestService(users, expirer, l)

	cleared, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
	expirer.AssertExpectations(t)
	assert.False(t, mr.Exists(LockKey), "lock must be released after sweep")
}

func TestSweep_LockHeldElsewhere(t *testing.T) {
	users := new(MockUsers)
	expirer := new(MockExpirer)
	l, mr := newLocker(t)
	require.NoError(t, mr.Set(LockKey, "other-replica"))

	s := newTestService(users, expirer, l)
	cleared, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, cleared)
	users.AssertNotCalled(t, "FindUsers", mock.Anything, mock.Anything)
	got, _ := mr.Get(LockKey)
	assert.Equal(t, "other-replica", got)
}

func TestSweep_WithoutLocker(t *testing.T) {
	users := new(MockUsers)
	expirer := new(MockExpirer)
	users.On("FindUsers", mock.Anything, mock.Anything).Return([]models.User{}, nil)

	s := newTestService(users, expirer, nil)
	cleared, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, cleared)
}

func TestSweep_FindError(t *testing.T) {
	users := new(MockUsers)
	users.On("FindUsers", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	s := newTestService(users, new(MockExpirer), nil)
	_, err := s.Sweep(context.Background())

	assert.ErrorContains(t, err, "db down")
}

func TestRun_StopsOnCancel(t *testing.T) {
	users := new(MockUsers)
	var sweeps atomic.Int32
	users.On("FindUsers", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { sweeps.Add(1) }).
		Return([]models.User{}, nil)

	s := newTestService(users, new(MockExpirer), nil)
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
