package app

import (
	"context"
	"fmt"
	"time"

	"quiz-attempt-service/internal/domain"
)

// Attempts is the attempt use-case surface consumed by transports.
type Attempts interface {
	Submit(ctx context.Context, caller domain.Principal, quizID int64, answers domain.AnswerSet) (domain.AttemptResult, error)
	Result(ctx context.Context, caller domain.Principal, attemptID int64) (domain.AttemptResult, error)
}

// AttemptService grades, records and serves quiz attempts.
type AttemptService struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

func NewAttemptService(store Store, notifier Notifier) *AttemptService {
	return NewAttemptServiceWithClock(store, notifier, time.Now)
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps.
func NewAttemptServiceWithClock(store Store, notifier Notifier, now func() time.Time) *AttemptService {
	return &AttemptService{store: store, notifier: notifier, now: now}
}

// Submit scores answers for quizID, records the attempt and queues a notification for the caller.
func (s *AttemptService) Submit(ctx context.Context, caller domain.Principal, quizID int64, answers domain.AnswerSet) (domain.AttemptResult, error) {
	answers = answers.Clone()

	var (
		result   domain.AttemptResult
		username string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Repositories) error {
		user, err := tx.Users().FindByUsername(ctx, caller.Username)
		if err != nil {
			return err
		}
		quiz, err := tx.Quizzes().FindQuiz(ctx, quizID)
		if err != nil {
			return err
		}

		tally := Score(quiz.Questions, answers)
		encoded, err := answers.Encode()
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInternal, err)
		}

		saved, err := tx.Attempts().SaveAttempt(ctx, domain.Attempt{
			UserID:      user.ID,
			Username:    user.Username,
			QuizID:      quiz.ID,
			Score:       tally.Percentage,
			Answers:     encoded,
			SubmittedAt: s.now().UTC().Truncate(time.Microsecond),
		})
		if err != nil {
			return err
		}

		username = user.Username
		result = domain.AttemptResult{
			ID:             saved.ID,
			QuizID:         quiz.ID,
			QuizTitle:      quiz.Title,
			Score:          saved.Score,
			TotalQuestions: tally.Total,
			CorrectAnswers: tally.Correct,
			SubmittedAt:    saved.SubmittedAt,
			UserAnswers:    answers,
		}
		return nil
	})
	if err != nil {
		return domain.AttemptResult{}, err
	}

	s.notifier.Notify(ctx, domain.Notification{
		Username:  username,
		QuizTitle: result.QuizTitle,
		Score:     result.Score,
		SentAt:    s.now().UTC(),
	})
	return result, nil
}

// Result returns a recorded attempt to its owner. The stored score is returned as recorded while
// the correct/total tallies are recomputed against the quiz's current questions.
func (s *AttemptService) Result(ctx context.Context, caller domain.Principal, attemptID int64) (domain.AttemptResult, error) {
	var result domain.AttemptResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Repositories) error {
		attempt, err := tx.Attempts().FindAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Username != caller.Username {
			return domain.ErrForbidden
		}

		answers, err := domain.DecodeAnswerSet(attempt.Answers)
		if err != nil {
			return fmt.Errorf("%w: attempt %d: %w", domain.ErrInternal, attempt.ID, err)
		}

		quiz, err := tx.Quizzes().FindQuiz(ctx, attempt.QuizID)
		if err != nil {
			return err
		}
		tally := Score(quiz.Questions, answers)

		result = domain.AttemptResult{
			ID:             attempt.ID,
			QuizID:         quiz.ID,
			QuizTitle:      quiz.Title,
			Score:          attempt.Score,
			TotalQuestions: tally.Total,
			CorrectAnswers: tally.Correct,
			SubmittedAt:    attempt.SubmittedAt,
			UserAnswers:    answers,
		}
		return nil
	})
	if err != nil {
		return domain.AttemptResult{}, err
	}
	return result, nil
}
