package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/nulzo/vision-grader/internal/engine"
	"github.com/nulzo/vision-grader/internal/store"
	"github.com/nulzo/vision-grader/internal/store/model"
	"github.com/nulzo/vision-grader/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := sqlite.NewSQLiteStorage(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestIngestor_FlushesOnStop(t *testing.T) {
	repo := newRepo(t)
	ing := NewIngestor(zap.NewNop(), repo, WithFlushInterval(time.Hour))
	ing.Start(context.Background())

	for i := 0; i < 3; i++ {
		ing.Record(&engine.CallRecord{
			Slot:       "first",
			Provider:   "openai",
			Success:    true,
			StatusCode: 200,
			Attempts:   1,
			Latency:    250 * time.Millisecond,
			CreatedAt:  time.Now().UTC(),
		})
	}
	ing.Stop()

	logs, err := repo.Calls().GetRecent(context.Background(), "first", 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.NotEmpty(t, logs[0].ID)
	assert.NotEqual(t, logs[0].ID, logs[1].ID)
	assert.Equal(t, int64(250), logs[0].LatencyMS)

	// recording after stop is a no-op
	ing.Record(&engine.CallRecord{Slot: "first"})
	ing.Stop()
}

func TestIngestor_FlushesFullBatch(t *testing.T) {
	repo := newRepo(t)
	ing := NewIngestor(zap.NewNop(), repo, WithBatchSize(2), WithFlushInterval(time.Hour))
	ing.Start(context.Background())
	defer ing.Stop()

	ing.Record(&engine.CallRecord{Slot: "second", Provider: "zhipu"})
	ing.Record(&engine.CallRecord{Slot: "second", Provider: "zhipu"})

	assert.Eventually(t, func() bool {
		logs, err := repo.Calls().GetRecent(context.Background(), "second", 10)
		return err == nil && len(logs) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestToCallLog(t *testing.T) {
	rec := &engine.CallRecord{
		Slot:         "first",
		Provider:     "volcengine",
		URL:          "https://ark.example.com/api/v3/chat/completions",
		Cached:       true,
		HasImage:     true,
		ImageFormat:  "data_uri",
		StatusCode:   401,
		ErrorKind:    "cache_invalid",
		ErrorMessage: "API call failed with status 401",
		Attempts:     1,
		Latency:      1500 * time.Millisecond,
	}

	log := toCallLog(rec)
	assert.Len(t, log.ID, 36)
	assert.Equal(t, int64(1500), log.LatencyMS)
	assert.Equal(t, "cache_invalid", log.ErrorKind)
	assert.False(t, log.CreatedAt.IsZero())
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Calls() store.CallRepository {
	return m.Called().Get(0).(store.CallRepository)
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	return fn(m)
}

func (m *mockRepo) Close() error { return nil }

type mockCalls struct {
	mock.Mock
}

func (m *mockCalls) Log(ctx context.Context, log *model.CallLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *mockCalls) GetByID(ctx context.Context, id string) (*model.CallLog, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.CallLog), args.Error(1)
}

func (m *mockCalls) GetRecent(ctx context.Context, slot string, limit int) ([]model.CallLog, error) {
	args := m.Called(ctx, slot, limit)
	return args.Get(0).([]model.CallLog), args.Error(1)
}

func (m *mockCalls) GetStats(ctx context.Context, days int) ([]model.SlotStats, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]model.SlotStats), args.Error(1)
}

func TestService_Defaults(t *testing.T) {
	calls := new(mockCalls)
	repo := new(mockRepo)
	repo.On("Calls").Return(calls)

	calls.On("GetRecent", mock.Anything, "", 50).Return([]model.CallLog{}, nil).Once()
	calls.On("GetRecent", mock.Anything, "first", 500).Return([]model.CallLog{{ID: "x"}}, nil).Once()
	calls.On("GetStats", mock.Anything, 7).Return([]model.SlotStats{}, nil).Once()

	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.RecentCalls(ctx, "", 0)
	require.NoError(t, err)

	logs, err := svc.RecentCalls(ctx, "first", 10000)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = svc.SlotStats(ctx, -1)
	require.NoError(t, err)

	calls.AssertExpectations(t)
}
