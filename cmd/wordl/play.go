package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wordl-bot/wordl/internal/domain"
	"github.com/wordl-bot/wordl/internal/events"
	"github.com/wordl-bot/wordl/internal/service/session"
)

func newQuizCmd(c *cli) *cobra.Command {
	var userID, groupID int64
	var count int

	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Answer a fixed number of questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.close()

			id, err := app.engine.StartQuizSession(cmd.Context(), userID, groupID, count)
			if err != nil {
				return err
			}
			return newPlayer(app.engine, cmd.InOrStdin(), cmd.OutOrStdout()).play(cmd.Context(), id)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "learner id")
	cmd.Flags().Int64Var(&groupID, "group", 0, "group id (0 for the personal list)")
	cmd.Flags().IntVar(&count, "count", 0, "number of questions (0 for the configured default)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newBlitzCmd(c *cli) *cobra.Command {
	var userID, groupID int64
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "blitz",
		Short: "Answer as many questions as possible before time runs out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.close()

			p := newPlayer(app.engine, cmd.InOrStdin(), cmd.OutOrStdout())
			app.emitter.RegisterHandler(p.expiryHandler(userID))

			id, err := app.engine.StartBlitzSession(cmd.Context(), userID, groupID, duration)
			if err != nil {
				return err
			}
			return p.play(cmd.Context(), id)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "learner id")
	cmd.Flags().Int64Var(&groupID, "group", 0, "group id (0 for the personal list)")
	cmd.Flags().DurationVar(&duration, "duration", time.Minute, "blitz length")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// sessionDriver is the part of the engine the console player uses.
type sessionDriver interface {
	NextQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error)
	SubmitAnswer(ctx context.Context, id uuid.UUID, index int, chosen string) (*session.AnswerResult, error)
	FinishSession(ctx context.Context, id uuid.UUID) (*domain.SessionSummary, error)
}

// player runs one session on a line-oriented console. Typing q ends the
// session early.
type player struct {
	engine  sessionDriver
	out     io.Writer
	lines   <-chan string
	shuffle func(n int, swap func(i, j int))
	expired chan struct{}
}

func newPlayer(engine sessionDriver, in io.Reader, out io.Writer) *player {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	return &player{
		engine:  engine,
		out:     out,
		lines:   lines,
		shuffle: rand.Shuffle,
		expired: make(chan struct{}, 1),
	}
}

// expiryHandler signals the player when a blitz of userID runs out of time,
// so it stops waiting for input.
func (p *player) expiryHandler(userID int64) events.EventHandler {
	return events.HandlerFunc(func(_ context.Context, event *events.Event) error {
		if event.Type != events.TypeSessionFinished {
			return nil
		}
		var payload events.SessionFinished
		if err := event.UnmarshalPayload(&payload); err != nil {
			return err
		}
		if payload.Reason != events.ReasonExpired || payload.UserID != userID {
			return nil
		}
		select {
		case p.expired <- struct{}{}:
		default:
		}
		return nil
	})
}

func (p *player) play(ctx context.Context, id uuid.UUID) error {
	for {
		q, err := p.engine.NextQuestion(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNoWordsAvailable):
			fmt.Fprintln(p.out, "No words to review right now.")
			return p.finish(ctx, id)
		case errors.Is(err, domain.ErrStaleSessionAction):
			fmt.Fprintln(p.out, "Time is up!")
			return p.finish(ctx, id)
		case err != nil:
			return err
		}

		options := q.Options()
		p.shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

		fmt.Fprintf(p.out, "\n%d. %s\n", q.Index+1, q.Prompt)
		for i, opt := range options {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
		}

		choice, quit, err := p.readChoice(ctx, len(options))
		if err != nil {
			return err
		}
		if quit {
			return p.finish(ctx, id)
		}

		res, err := p.engine.SubmitAnswer(ctx, id, q.Index, options[choice])
		if errors.Is(err, domain.ErrStaleSessionAction) {
			fmt.Fprintln(p.out, "Time is up!")
			return p.finish(ctx, id)
		}
		if err != nil {
			return err
		}

		if res.IsCorrect {
			fmt.Fprintf(p.out, "Correct! %+d (total %d)\n", res.PointsDelta, res.Points)
		} else {
			fmt.Fprintf(p.out, "Wrong, the answer is %q. %+d (total %d)\n", res.CorrectValue, res.PointsDelta, res.Points)
		}
		if res.Finished {
			printSummary(p.out, res.Summary)
			return nil
		}
	}
}

// readChoice returns the zero-based option picked, or quit when the user
// typed q, closed the input, or the blitz expired.
func (p *player) readChoice(ctx context.Context, n int) (int, bool, error) {
	for {
		fmt.Fprint(p.out, "> ")
		select {
		case <-ctx.Done():
			return 0, false, ctx.Err()
		case <-p.expired:
			fmt.Fprintln(p.out)
			fmt.Fprintln(p.out, "Time is up!")
			return 0, true, nil
		case line, ok := <-p.lines:
			if !ok {
				return 0, true, nil
			}
			line = strings.TrimSpace(line)
			if strings.EqualFold(line, "q") {
				return 0, true, nil
			}
			i, err := strconv.Atoi(line)
			if err != nil || i < 1 || i > n {
				fmt.Fprintf(p.out, "Pick a number from 1 to %d, or q to stop.\n", n)
				continue
			}
			return i - 1, false, nil
		}
	}
}

func (p *player) finish(ctx context.Context, id uuid.UUID) error {
	summary, err := p.engine.FinishSession(ctx, id)
	if errors.Is(err, domain.ErrStaleSessionAction) {
		return nil
	}
	if err != nil {
		return err
	}
	printSummary(p.out, summary)
	return nil
}

func printSummary(out io.Writer, s *domain.SessionSummary) {
	if s == nil {
		fmt.Fprintln(out, "Nothing answered, nothing recorded.")
		return
	}
	fmt.Fprintf(out, "\n%s finished: %d correct, %d wrong", s.Kind, s.Correct, s.Wrong)
	if s.Unanswered > 0 {
		fmt.Fprintf(out, ", %d unanswered", s.Unanswered)
	}
	fmt.Fprintf(out, "\nResult %.0f%%, score %d\n", s.Percentage, s.Score)
	fmt.Fprintf(out, "Average %.0f%%, best %.0f%%\n", s.RollingAverage, s.BestPercentage)
}
