package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordl-bot/wordl/internal/cache"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/domain/srs"
	"github.com/wordl-bot/wordl/internal/platform/logger"
	"github.com/wordl-bot/wordl/internal/platform/sqlite"
	"github.com/wordl-bot/wordl/internal/service/picker"
	"github.com/wordl-bot/wordl/internal/service/session"
	"github.com/wordl-bot/wordl/internal/service/stats"
)

// TestQuizSession_EndToEnd runs a five question quiz against the sqlite stores
// with three correct and two wrong answers.
func TestQuizSession_EndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log, _ := logger.GetTestLogger(t)

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db, log))
	stores := sqlite.NewStores(db)

	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	clock := domain.Clock{Now: func() time.Time { return now }, Location: time.UTC}

	require.NoError(t, stores.Users.Ensure(ctx, 1))
	for i := 1; i <= 5; i++ {
		w, err := domain.NewWord(1, 0, fmt.Sprintf("word%d", i), fmt.Sprintf("soz%d", i), clock.Today())
		require.NoError(t, err)
		require.NoError(t, stores.Words.Create(ctx, w))
	}

	words := cache.NewWordCache(stores.Words, clock, log)
	recorder := stats.NewRecorder(stores, srs.NewDefaultService(), words, clock, stats.DefaultPoints(), log)
	engine := session.NewEngine(
		picker.NewPicker(words, stores.Words, log),
		recorder,
		session.DefaultConfig(),
		log,
		session.WithClock(clock),
	)

	id, err := engine.StartQuizSession(ctx, 1, 0, 5)
	require.NoError(t, err)

	var last *session.AnswerResult
	for i, correct := range []bool{true, true, false, true, false} {
		q, err := engine.NextQuestion(ctx, id)
		require.NoError(t, err)
		require.Len(t, q.Distractors, domain.DistractorCount)
		assert.Equal(t, i, q.Index)

		choice := q.Correct
		if !correct {
			choice = q.Distractors[0]
		}
		last, err = engine.SubmitAnswer(ctx, id, q.Index, choice)
		require.NoError(t, err)
		assert.Equal(t, correct, last.IsCorrect)
	}

	require.True(t, last.Finished)
	summary := last.Summary
	assert.Equal(t, 3, summary.Correct)
	assert.Equal(t, 2, summary.Wrong)
	assert.Equal(t, 60.0, summary.Percentage)
	assert.Equal(t, 60.0, summary.RollingAverage)
	assert.Equal(t, 60.0, summary.BestPercentage)
	assert.NotZero(t, summary.SessionRecordID)

	points, err := recorder.UserPoints(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, last.Points, points)

	_, err = engine.NextQuestion(ctx, id)
	assert.ErrorIs(t, err, domain.ErrStaleSessionAction)
}
