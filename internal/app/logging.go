package app

import (
	"context"
	"time"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

// LoggedAttempts records every attempt use-case call with its outcome and duration.
type LoggedAttempts struct {
	next Attempts
	log  *logger.Logger
}

func WithLogging(next Attempts, log *logger.Logger) *LoggedAttempts {
	return &LoggedAttempts{next: next, log: log.Named("attempts")}
}

func (l *LoggedAttempts) Submit(ctx context.Context, caller domain.Principal, quizID int64, answers domain.AnswerSet) (domain.AttemptResult, error) {
	start := time.Now()
	l.log.Info("submit attempt", "user", caller.Username, "quiz_id", quizID, "answers", len(answers))
	result, err := l.next.Submit(ctx, caller, quizID, answers)
	if err != nil {
		l.log.Warn("submit attempt failed", "user", caller.Username, "quiz_id", quizID, "error", err, "elapsed", time.Since(start))
		return result, err
	}
	l.log.Info("attempt recorded",
		"user", caller.Username,
		"quiz_id", quizID,
		"attempt_id", result.ID,
		"correct", result.CorrectAnswers,
		"total", result.TotalQuestions,
		"score", result.Score,
		"elapsed", time.Since(start),
	)
	return result, nil
}

func (l *LoggedAttempts) Result(ctx context.Context, caller domain.Principal, attemptID int64) (domain.AttemptResult, error) {
	start := time.Now()
	result, err := l.next.Result(ctx, caller, attemptID)
	if err != nil {
		l.log.Warn("fetch attempt failed", "user", caller.Username, "attempt_id", attemptID, "error", err, "elapsed", time.Since(start))
		return result, err
	}
	l.log.Info("attempt fetched", "user", caller.Username, "attempt_id", attemptID, "elapsed", time.Since(start))
	return result, nil
}

// LoggedQuizzes records authoring calls and failed catalog reads.
type LoggedQuizzes struct {
	next Quizzes
	log  *logger.Logger
}

var _ Quizzes = (*LoggedQuizzes)(nil)

func WithQuizLogging(next Quizzes, log *logger.Logger) *LoggedQuizzes {
	return &LoggedQuizzes{next: next, log: log.Named("quizzes")}
}

func (l *LoggedQuizzes) CreateQuiz(ctx context.Context, caller domain.Principal, in domain.NewQuiz) (domain.Quiz, error) {
	start := time.Now()
	quiz, err := l.next.CreateQuiz(ctx, caller, in)
	if err != nil {
		l.log.Warn("create quiz failed", "user", caller.Username, "title", in.Title, "error", err, "elapsed", time.Since(start))
		return quiz, err
	}
	l.log.Info("quiz created", "user", caller.Username, "quiz_id", quiz.ID, "category", quiz.Category, "elapsed", time.Since(start))
	return quiz, nil
}

func (l *LoggedQuizzes) AddQuestions(ctx context.Context, caller domain.Principal, quizID int64, in []domain.NewQuestion) (domain.Quiz, error) {
	start := time.Now()
	quiz, err := l.next.AddQuestions(ctx, caller, quizID, in)
	if err != nil {
		l.log.Warn("add questions failed", "user", caller.Username, "quiz_id", quizID, "questions", len(in), "error", err, "elapsed", time.Since(start))
		return quiz, err
	}
	l.log.Info("questions added", "user", caller.Username, "quiz_id", quizID, "added", len(in), "total", len(quiz.Questions), "elapsed", time.Since(start))
	return quiz, nil
}

func (l *LoggedQuizzes) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	page, err := l.next.ListQuizzes(ctx, filter)
	if err != nil {
		l.log.Warn("list quizzes failed", "category", filter.Category, "difficulty", filter.Difficulty, "error", err)
	}
	return page, err
}

func (l *LoggedQuizzes) GetQuiz(ctx context.Context, quizID int64) (domain.QuizView, error) {
	view, err := l.next.GetQuiz(ctx, quizID)
	if err != nil {
		l.log.Warn("get quiz failed", "quiz_id", quizID, "error", err)
	}
	return view, err
}
