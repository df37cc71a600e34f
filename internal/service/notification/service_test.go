package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	mocks "github.com/hospitalcore/notification-service/internal/mocks/service/notification"
	"github.com/hospitalcore/notification-service/internal/model"
	notifrepo "github.com/hospitalcore/notification-service/internal/repository/notification"
)

type serviceMocks struct {
	repo     *mocks.MocknotificationRepository
	cache    *mocks.Mockcache
	notifier *mocks.MockNotifier
}

func setupService(t *testing.T) (*Service, serviceMocks) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := serviceMocks{
		repo:     mocks.NewMocknotificationRepository(ctrl),
		cache:    mocks.NewMockcache(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
	}

	svc := NewService(m.repo, map[string]Notifier{
		model.TypeEmail: m.notifier,
		model.TypeSMS:   m.notifier,
	}, m.cache)

	return svc, m
}

func TestService_Dispatch_EmailSuccess(t *testing.T) {
	svc, m := setupService(t)
	strategy := retry.Strategy{}

	n := model.Notification{
		Type:       model.TypeEmail,
		Recipient:  "a@b.com",
		Subject:    "S",
		Message:    "M",
		ExternalID: "x-1",
	}

	m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, created model.Notification) (model.Notification, error) {
			assert.NotEqual(t, uuid.Nil, created.ID)
			assert.Equal(t, model.StatusPending, created.Status)
			assert.Equal(t, "S", created.Subject)
			assert.False(t, created.SentAt.IsZero())
			return created, nil
		},
	)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusPending).Return(nil)
	m.notifier.EXPECT().Send("a@b.com", "S", "M").Return(nil)
	m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), model.StatusSent).DoAndReturn(
		func(_ context.Context, id uuid.UUID, status string) (model.Notification, error) {
			updated := n
			updated.ID = id
			updated.Status = status
			return updated, nil
		},
	)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusSent).Return(nil)

	got, err := svc.Dispatch(context.Background(), strategy, n)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, got.Status)
	assert.Equal(t, "S", got.Subject)
	assert.Equal(t, "x-1", got.ExternalID)
}

func TestService_Dispatch_SMSIgnoresSubject(t *testing.T) {
	svc, m := setupService(t)
	strategy := retry.Strategy{}

	n := model.Notification{
		Type:       model.TypeSMS,
		Recipient:  "+15551234567",
		Subject:    "should be dropped",
		Message:    "M",
		ExternalID: "x-2",
	}

	m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, created model.Notification) (model.Notification, error) {
			assert.Empty(t, created.Subject)
			return created, nil
		},
	)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusPending).Return(nil)
	m.notifier.EXPECT().Send("+15551234567", "", "M").Return(nil)
	m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), model.StatusSent).DoAndReturn(
		func(_ context.Context, id uuid.UUID, status string) (model.Notification, error) {
			return model.Notification{ID: id, Status: status}, nil
		},
	)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusSent).Return(nil)

	got, err := svc.Dispatch(context.Background(), strategy, n)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, got.Status)
}

func TestService_Dispatch_TransportFailure(t *testing.T) {
	svc, m := setupService(t)
	strategy := retry.Strategy{}

	n := model.Notification{
		Type:       model.TypeEmail,
		Recipient:  "a@b.com",
		Subject:    "S",
		Message:    "M",
		ExternalID: "x-1",
	}

	m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, created model.Notification) (model.Notification, error) {
			return created, nil
		},
	)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusPending).Return(nil)
	m.notifier.EXPECT().Send("a@b.com", "S", "M").Return(errors.New("smtp: connection refused"))
	m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), model.StatusFailed).DoAndReturn(
		func(_ context.Context, id uuid.UUID, status string) (model.Notification, error) {
			return model.Notification{ID: id, Status: status}, nil
		},
	)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusFailed).Return(nil)

	got, err := svc.Dispatch(context.Background(), strategy, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "connection refused")

	// The stored record and the signalled outcome must agree.
	assert.Equal(t, model.StatusFailed, got.Status)
}

func TestService_Dispatch_UnknownTypeFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repoMock := mocks.NewMocknotificationRepository(ctrl)
	cacheMock := mocks.NewMockcache(ctrl)
	svc := NewService(repoMock, map[string]Notifier{}, cacheMock)

	strategy := retry.Strategy{}
	n := model.Notification{Type: "push", Recipient: "r", Message: "M", ExternalID: "x"}

	repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, created model.Notification) (model.Notification, error) {
			return created, nil
		},
	)
	cacheMock.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusPending).Return(nil)
	repoMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), model.StatusFailed).DoAndReturn(
		func(_ context.Context, id uuid.UUID, status string) (model.Notification, error) {
			return model.Notification{ID: id, Status: status}, nil
		},
	)
	cacheMock.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusFailed).Return(nil)

	got, err := svc.Dispatch(context.Background(), strategy, n)
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Equal(t, model.StatusFailed, got.Status)
}

func TestService_Dispatch_FinalizeWriteFailure(t *testing.T) {
	svc, m := setupService(t)
	strategy := retry.Strategy{}

	n := model.Notification{Type: model.TypeEmail, Recipient: "a@b.com", Subject: "S", Message: "M", ExternalID: "x"}

	m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, created model.Notification) (model.Notification, error) {
			return created, nil
		},
	)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, gomock.Any(), model.StatusPending).Return(nil)
	m.notifier.EXPECT().Send("a@b.com", "S", "M").Return(nil)
	m.repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), model.StatusSent).
		Return(model.Notification{}, errors.New("connection reset"))

	// The store fault propagates even though delivery succeeded; it is
	// never converted into a silent success.
	_, err := svc.Dispatch(context.Background(), strategy, n)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "update notification status")
}

func TestService_Dispatch_CreateFailure(t *testing.T) {
	svc, m := setupService(t)
	strategy := retry.Strategy{}

	n := model.Notification{Type: model.TypeEmail, Recipient: "a@b.com", Subject: "S", Message: "M", ExternalID: "x"}

	m.repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(model.Notification{}, errors.New("db down"))

	_, err := svc.Dispatch(context.Background(), strategy, n)
	require.Error(t, err)
}

func TestService_SoftDelete(t *testing.T) {
	svc, m := setupService(t)
	id := uuid.New()

	m.repo.EXPECT().SoftDelete(gomock.Any(), id).
		Return(model.Notification{ID: id, Deleted: true}, nil)

	n, err := svc.SoftDelete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, n.Deleted)
}

func TestService_SoftDelete_NotFound(t *testing.T) {
	svc, m := setupService(t)
	id := uuid.New()

	m.repo.EXPECT().SoftDelete(gomock.Any(), id).
		Return(model.Notification{}, notifrepo.ErrNotificationNotFound)

	_, err := svc.SoftDelete(context.Background(), id)
	assert.ErrorIs(t, err, notifrepo.ErrNotificationNotFound)
}

func TestService_GetStatusByID_CacheHit(t *testing.T) {
	svc, m := setupService(t)
	id := uuid.New()
	strategy := retry.Strategy{}

	m.cache.EXPECT().GetWithRetry(gomock.Any(), strategy, id.String()).Return(model.StatusSent, nil)

	status, err := svc.GetStatusByID(context.Background(), strategy, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, status)
}

func TestService_GetStatusByID_CacheMiss(t *testing.T) {
	svc, m := setupService(t)
	id := uuid.New()
	strategy := retry.Strategy{}

	m.cache.EXPECT().GetWithRetry(gomock.Any(), strategy, id.String()).Return("", redis.Nil)
	m.repo.EXPECT().GetStatusByID(gomock.Any(), id).Return(model.StatusFailed, nil)
	m.cache.EXPECT().SetWithRetry(gomock.Any(), strategy, id.String(), model.StatusFailed).Return(nil)

	status, err := svc.GetStatusByID(context.Background(), strategy, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, status)
}

func TestService_GetByID(t *testing.T) {
	svc, m := setupService(t)
	id := uuid.New()

	m.repo.EXPECT().GetByID(gomock.Any(), id, true).
		Return(model.Notification{ID: id, Deleted: true}, nil)

	n, err := svc.GetByID(context.Background(), id, true)
	require.NoError(t, err)
	assert.True(t, n.Deleted)
}

func TestDispatch_GeneratedIDsAreUnique(t *testing.T) {
	seen := make(map[uuid.UUID]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := uuid.New()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate notification id generated: %s", id)
		}
		seen[id] = struct{}{}
	}
}
