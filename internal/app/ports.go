package app

import (
	"context"

	"quiz-attempt-service/internal/domain"
)

// UserDirectory resolves usernames to user records.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	EnsureUser(ctx context.Context, username string, role domain.Role) (domain.User, error)
}

// QuizRepository persists quizzes with their ordered questions.
type QuizRepository interface {
	// FindQuiz returns the quiz with every question loaded, or domain.ErrQuizNotFound.
	FindQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	AddQuestions(ctx context.Context, quizID int64, questions []domain.Question) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error)
}

// AttemptRepository stores write-once attempts.
type AttemptRepository interface {
	// SaveAttempt assigns an id and returns the stored record.
	SaveAttempt(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error)
	// FindAttempt returns the attempt with its owner's username, or domain.ErrAttemptNotFound.
	FindAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error)
}

// Repositories groups the stores taking part in one unit of work.
type Repositories interface {
	Users() UserDirectory
	Quizzes() QuizRepository
	Attempts() AttemptRepository
}

// Store is the transactional persistence boundary (in-memory, Postgres, SQLite).
type Store interface {
	Repositories
	// WithinTx runs fn in a single transaction. Writes made through tx are discarded when fn fails.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error, opts ...TxOption) error
}

// TxOptions tunes one WithinTx call. Stores that serialize every transaction ignore it.
type TxOptions struct {
	// ReadCommitted lets statements see rows committed after the transaction began,
	// e.g. after waiting on a row lock. The default is one snapshot for the whole transaction.
	ReadCommitted bool
}

type TxOption func(*TxOptions)

// ReadCommitted asks for read-committed isolation.
func ReadCommitted() TxOption {
	return func(o *TxOptions) { o.ReadCommitted = true }
}

// ApplyTxOptions folds opts into a TxOptions value.
func ApplyTxOptions(opts []TxOption) TxOptions {
	var o TxOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// QuizCatalog serves read-mostly quiz content (from cache/backing store).
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID int64) error
}

// Notifier hands notifications off for delivery without waiting on the outcome.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}
