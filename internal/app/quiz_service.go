package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

const (
	defaultPageSize = 5
	maxPageSize     = 100
)

// Quizzes is the authoring and catalog surface.
type Quizzes interface {
	CreateQuiz(ctx context.Context, caller domain.Principal, in domain.NewQuiz) (domain.Quiz, error)
	AddQuestions(ctx context.Context, caller domain.Principal, quizID int64, in []domain.NewQuestion) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error)
	GetQuiz(ctx context.Context, quizID int64) (domain.QuizView, error)
}

// QuizService contains the quiz authoring and catalog use cases.
type QuizService struct {
	store    Store
	catalog  QuizCatalog
	log      *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

var _ Quizzes = (*QuizService)(nil)

func NewQuizService(store Store, catalog QuizCatalog, log *logger.Logger) *QuizService {
	if log == nil {
		log = logger.Nop()
	}
	return &QuizService{
		store:    store,
		catalog:  catalog,
		log:      log.Named("quizzes"),
		validate: validator.New(),
		now:      time.Now,
	}
}

// CreateQuiz registers an empty quiz. Only administrators may author quizzes.
func (s *QuizService) CreateQuiz(ctx context.Context, caller domain.Principal, in domain.NewQuiz) (domain.Quiz, error) {
	if !caller.IsAdmin() {
		return domain.Quiz{}, domain.ErrForbidden
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.Quiz{}, invalid(err)
	}
	return s.store.Quizzes().CreateQuiz(ctx, domain.Quiz{
		Title:      in.Title,
		Category:   in.Category,
		Difficulty: in.Difficulty,
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
	})
}

// AddQuestions appends questions, in order, to an existing quiz.
func (s *QuizService) AddQuestions(ctx context.Context, caller domain.Principal, quizID int64, in []domain.NewQuestion) (domain.Quiz, error) {
	if !caller.IsAdmin() {
		return domain.Quiz{}, domain.ErrForbidden
	}
	if len(in) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: no questions", domain.ErrInvalidQuiz)
	}

	questions := make([]domain.Question, 0, len(in))
	for i, q := range in {
		if err := s.validate.Struct(q); err != nil {
			return domain.Quiz{}, fmt.Errorf("question %d: %w", i, invalid(err))
		}
		if *q.CorrectOptionIndex >= len(q.Options) {
			return domain.Quiz{}, fmt.Errorf("%w: question %d: correct option index %d out of range", domain.ErrInvalidQuiz, i, *q.CorrectOptionIndex)
		}
		questions = append(questions, domain.Question{
			QuizID:             quizID,
			Text:               q.Text,
			Options:            append([]string(nil), q.Options...),
			CorrectOptionIndex: *q.CorrectOptionIndex,
		})
	}

	var quiz domain.Quiz
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Repositories) error {
		var err error
		quiz, err = tx.Quizzes().AddQuestions(ctx, quizID, questions)
		return err
	}, ReadCommitted())
	if err != nil {
		return domain.Quiz{}, err
	}
	// A stale cache entry only delays visibility of the new questions until its TTL runs out.
	if err := s.catalog.Invalidate(ctx, quizID); err != nil {
		s.log.Warn("quiz cache invalidation failed", "quiz_id", quizID, "error", err)
	}
	return quiz, nil
}

// ListQuizzes returns one page of quiz summaries.
func (s *QuizService) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		return domain.QuizPage{}, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidQuiz, filter.Difficulty)
	}
	if filter.Page < 0 {
		filter.Page = 0
	}
	if filter.Size <= 0 {
		filter.Size = defaultPageSize
	}
	if filter.Size > maxPageSize {
		filter.Size = maxPageSize
	}
	return s.store.Quizzes().ListQuizzes(ctx, filter)
}

// GetQuiz returns a quiz as shown to quiz takers, without correct answers.
func (s *QuizService) GetQuiz(ctx context.Context, quizID int64) (domain.QuizView, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}
	return quiz.View(), nil
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: field %s failed %q", domain.ErrInvalidQuiz, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidQuiz, err)
}
