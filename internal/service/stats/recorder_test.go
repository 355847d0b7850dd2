package stats_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/domain/srs"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/platform/sqlite"
	"github.com/wordl-bot/wordl/internal/service/stats"
	"github.com/wordl-bot/wordl/internal/store"
)

var today = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// spyInvalidator records which words were invalidated.
type spyInvalidator struct {
	mu    sync.Mutex
	words []int64
}

func (s *spyInvalidator) Invalidate(domain.Scope) {}
func (s *spyInvalidator) InvalidateGroup(int64)   {}
func (s *spyInvalidator) InvalidateAll()          {}
func (s *spyInvalidator) InvalidateWord(w *domain.Word) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = append(s.words, w.ID)
}

func (s *spyInvalidator) invalidated() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.words...)
}

type fixture struct {
	stores   store.Stores
	recorder *stats.Recorder
	spy      *spyInvalidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db, nil))

	stores := sqlite.NewStores(db)
	require.NoError(t, stores.Users.Ensure(ctx, 1))

	spy := &spyInvalidator{}
	clock := domain.Clock{Now: func() time.Time { return today }, Location: time.UTC}
	log, _ := logger.GetTestLogger(t)
	rec := stats.NewRecorder(stores, srs.NewDefaultService(), spy, clock, stats.DefaultPoints(), log)
	return &fixture{stores: stores, recorder: rec, spy: spy}
}

func (f *fixture) addWord(t *testing.T, source, target string) *domain.Word {
	t.Helper()
	w, err := domain.NewWord(1, 0, source, target, today)
	require.NoError(t, err)
	require.NoError(t, f.stores.Words.Create(context.Background(), w))
	return w
}

func TestRecordAnswer_TwoCorrectPromote(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t, "cat", "mushuk")

	first, err := f.recorder.RecordAnswer(ctx, stats.Answer{UserID: 1, WordID: w.ID, Prompt: "cat", Correct: true, Kind: domain.SessionKindQuiz})
	require.NoError(t, err)
	require.NotNil(t, first.Outcome)
	assert.Equal(t, domain.TransitionNone, first.Outcome.Transition)
	assert.Equal(t, 5, first.PointsDelta)
	assert.Equal(t, 5, first.Points)
	assert.Empty(t, f.spy.invalidated(), "a non-promoting answer leaves the cache alone")

	second, err := f.recorder.RecordAnswer(ctx, stats.Answer{UserID: 1, WordID: w.ID, Prompt: "cat", Correct: true, Kind: domain.SessionKindQuiz})
	require.NoError(t, err)
	assert.Equal(t, domain.TransitionPromoted, second.Outcome.Transition)
	assert.Equal(t, 10, second.Points)
	assert.Equal(t, []int64{w.ID}, f.spy.invalidated())

	got, err := f.stores.Words.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Level)
	require.NotNil(t, got.NextEligible)
	assert.Equal(t, "2024-01-16", domain.FormatDate(*got.NextEligible))
}

func TestRecordAnswer_WrongDemotesAndFloorsPoints(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t, "dog", "it")

	rec, err := f.recorder.RecordAnswer(ctx, stats.Answer{UserID: 1, WordID: w.ID, Prompt: "dog", Correct: false, Kind: domain.SessionKindBlitz})
	require.NoError(t, err)
	assert.Equal(t, -4, rec.PointsDelta)
	assert.Equal(t, 0, rec.Points, "points never go below zero")
	assert.Equal(t, domain.TransitionDemoted, rec.Outcome.Transition)
	assert.Equal(t, []int64{w.ID}, f.spy.invalidated())

	blitz, err := f.recorder.RecordAnswer(ctx, stats.Answer{UserID: 1, WordID: w.ID, Prompt: "dog", Correct: true, Kind: domain.SessionKindBlitz})
	require.NoError(t, err)
	assert.Equal(t, 7, blitz.PointsDelta)
	assert.Equal(t, 7, blitz.Points)
}

func TestRecordAnswer_MissingWordStillRecordsEvent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t, "cat", "mushuk")
	_, err := f.stores.Words.Delete(ctx, w.ID, 1)
	require.NoError(t, err)

	rec, err := f.recorder.RecordAnswer(ctx, stats.Answer{UserID: 1, WordID: w.ID, Prompt: "cat", Correct: true, Kind: domain.SessionKindQuiz})
	require.NoError(t, err)
	assert.Nil(t, rec.Outcome)
	assert.Equal(t, 5, rec.Points)
	assert.Empty(t, f.spy.invalidated())

	hardest, err := f.recorder.Hardest(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, hardest, 1)
	assert.Equal(t, "cat", hardest[0].Value)
	assert.Equal(t, 1, hardest[0].Attempts)
}

func TestRecordAnswer_InvariantViolationIsLoggedAndSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db, nil))
	stores := sqlite.NewStores(db)
	require.NoError(t, stores.Users.Ensure(ctx, 1))

	w, err := domain.NewWord(1, 0, "cat", "mushuk", today)
	require.NoError(t, err)
	require.NoError(t, stores.Words.Create(ctx, w))

	// A broken row can only come from outside the scheduler; simulate it
	// with a word store that reports a negative level.
	broken := &brokenWords{WordStore: stores.Words}
	stores.Words = broken

	log, buf := logger.GetTestLogger(t)
	spy := &spyInvalidator{}
	clock := domain.Clock{Now: func() time.Time { return today }}
	rec := stats.NewRecorder(stores, srs.NewDefaultService(), spy, clock, stats.DefaultPoints(), log)

	res, err := rec.RecordAnswer(ctx, stats.Answer{UserID: 1, WordID: w.ID, Prompt: "cat", Correct: true, Kind: domain.SessionKindQuiz})
	require.NoError(t, err)
	assert.Nil(t, res.Outcome)
	assert.Equal(t, 5, res.Points)
	assert.Contains(t, buf.String(), "invalid mastery fields")
}

type brokenWords struct {
	store.WordStore
}

func (b *brokenWords) GetByID(ctx context.Context, id int64) (*domain.Word, error) {
	w, err := b.WordStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Level = -1
	return w, nil
}

func (b *brokenWords) WithTx(tx *sql.Tx) store.WordStore {
	return &brokenWords{WordStore: b.WordStore.WithTx(tx)}
}

func TestRecordAnswer_StoreFailureWrapsStoreUnavailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWord(t, "cat", "mushuk")
	require.NoError(t, f.stores.DB.Close())

	_, err := f.recorder.RecordAnswer(ctx, stats.Answer{UserID: 1, WordID: w.ID, Prompt: "cat", Correct: true, Kind: domain.SessionKindQuiz})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.Empty(t, f.spy.invalidated())
}

func TestPersistSessionSummary(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.recorder.PersistSessionSummary(ctx, &domain.SessionRecord{
		UserID: 1, Kind: domain.SessionKindQuiz, Correct: 3, Wrong: 2,
		StartedAt: today, FinishedAt: today.Add(time.Minute),
	}, 0)
	require.NoError(t, err)
	assert.NotZero(t, first.SessionRecordID)
	assert.Equal(t, 60.0, first.Percentage)
	assert.Equal(t, 60.0, first.RollingAverage)
	assert.Equal(t, 60.0, first.BestPercentage)

	second, err := f.recorder.PersistSessionSummary(ctx, &domain.SessionRecord{
		UserID: 1, Kind: domain.SessionKindBlitz, Correct: 5, Wrong: 0,
		StartedAt: today, FinishedAt: today.Add(2 * time.Minute),
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, second.Percentage)
	assert.Equal(t, 80.0, second.RollingAverage, "8 of 10 answers correct overall")
	assert.Equal(t, 100.0, second.BestPercentage)

	agg, err := f.recorder.LoadAggregates(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.TotalSessions)
	assert.Equal(t, second.SessionRecordID, agg.BestSessionID)
}

func TestPersistSessionSummary_EmptySessionIsNotStored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.recorder.PersistSessionSummary(ctx, &domain.SessionRecord{
		UserID: 1, Kind: domain.SessionKindQuiz, StartedAt: today, FinishedAt: today,
	}, 5)
	require.NoError(t, err)
	assert.Zero(t, summary.SessionRecordID)
	assert.Equal(t, 5, summary.Unanswered)
	assert.Zero(t, summary.Percentage)

	agg, err := f.recorder.LoadAggregates(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, agg.TotalSessions)
}

func TestRecordAdd(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	err := f.stores.InTx(ctx, func(ctx context.Context, tx store.Stores) error {
		w, err := domain.NewWord(1, 0, "sun", "quyosh", today)
		if err != nil {
			return err
		}
		if err := tx.Words.Create(ctx, w); err != nil {
			return err
		}
		return f.recorder.RecordAdd(ctx, tx, w)
	})
	require.NoError(t, err)

	points, err := f.recorder.UserPoints(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, points)

	unknown, err := f.recorder.UserPoints(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, unknown)
}

func TestPointsTable(t *testing.T) {
	t.Parallel()
	p := stats.DefaultPoints()
	assert.Equal(t, 5, p.ForAnswer(true, domain.SessionKindQuiz))
	assert.Equal(t, 7, p.ForAnswer(true, domain.SessionKindBlitz))
	assert.Equal(t, -4, p.ForAnswer(false, domain.SessionKindQuiz))
	assert.Equal(t, -4, p.ForAnswer(false, domain.SessionKindBlitz))
	assert.Equal(t, 3*7-2*4, p.Score(3, 2, domain.SessionKindBlitz))
}
