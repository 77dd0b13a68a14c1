package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/logger"
)

func TestCreateQuizRequiresAdmin(t *testing.T) {
	service, _ := newQuizService()

	_, err := service.CreateQuiz(context.Background(), alice, domain.NewQuiz{Title: "Go", Category: "programming", Difficulty: domain.DifficultyEasy})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateQuizValidates(t *testing.T) {
	service, _ := newQuizService()
	for _, in := range []domain.NewQuiz{
		{Category: "c", Difficulty: domain.DifficultyEasy},
		{Title: "t", Difficulty: domain.DifficultyEasy},
		{Title: "t", Category: "c", Difficulty: "TRIVIAL"},
	} {
		if _, err := service.CreateQuiz(context.Background(), admin, in); !errors.Is(err, domain.ErrInvalidQuiz) {
			t.Fatalf("expected invalid quiz for %+v, got %v", in, err)
		}
	}
}

func TestAuthorAndViewQuiz(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizService()

	quiz, err := service.CreateQuiz(ctx, admin, domain.NewQuiz{Title: "Go", Category: "programming", Difficulty: domain.DifficultyMedium})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.CreatedAt.IsZero() {
		t.Fatalf("expected creation timestamp")
	}

	// Warm the catalog so AddQuestions has something to invalidate.
	if view, err := service.GetQuiz(ctx, quiz.ID); err != nil || len(view.Questions) != 0 {
		t.Fatalf("expected empty quiz view, got %+v err=%v", view, err)
	}

	if _, err := service.AddQuestions(ctx, admin, quiz.ID, []domain.NewQuestion{
		{Text: "Which keyword starts a goroutine?", Options: []string{"go", "async", "spawn"}, CorrectOptionIndex: intPtr(0)},
		{Text: "Zero value of a map?", Options: []string{"empty map", "nil"}, CorrectOptionIndex: intPtr(1)},
	}); err != nil {
		t.Fatalf("add questions: %v", err)
	}

	view, err := service.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(view.Questions) != 2 || view.Questions[0].Options[0] != "go" {
		t.Fatalf("expected fresh questions after invalidation, got %+v", view.Questions)
	}
}

func TestAddQuestionsValidates(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizService()
	quiz, _ := service.CreateQuiz(ctx, admin, domain.NewQuiz{Title: "Go", Category: "c", Difficulty: domain.DifficultyEasy})

	cases := map[string][]domain.NewQuestion{
		"no questions":       nil,
		"missing text":       {{Options: []string{"a"}, CorrectOptionIndex: intPtr(0)}},
		"no options":         {{Text: "q", Options: nil, CorrectOptionIndex: intPtr(0)}},
		"blank option":       {{Text: "q", Options: []string{"a", ""}, CorrectOptionIndex: intPtr(0)}},
		"missing index":     {{Text: "q", Options: []string{"a"}}},
		"negative index":     {{Text: "q", Options: []string{"a"}, CorrectOptionIndex: intPtr(-1)}},
		"index out of range": {{Text: "q", Options: []string{"a", "b"}, CorrectOptionIndex: intPtr(2)}},
	}
	for name, in := range cases {
		if _, err := service.AddQuestions(ctx, admin, quiz.ID, in); !errors.Is(err, domain.ErrInvalidQuiz) {
			t.Fatalf("%s: expected invalid quiz, got %v", name, err)
		}
	}

	if _, err := service.AddQuestions(ctx, alice, quiz.ID, []domain.NewQuestion{{Text: "q", Options: []string{"a"}, CorrectOptionIndex: intPtr(0)}}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := service.AddQuestions(ctx, admin, 404, []domain.NewQuestion{{Text: "q", Options: []string{"a"}, CorrectOptionIndex: intPtr(0)}}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestListQuizzesDefaults(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizService()
	for i := 0; i < 7; i++ {
		if _, err := service.CreateQuiz(ctx, admin, domain.NewQuiz{Title: "quiz", Category: "c", Difficulty: domain.DifficultyEasy}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := service.ListQuizzes(ctx, domain.QuizFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Size != 5 || len(page.Items) != 5 || page.Total != 7 {
		t.Fatalf("unexpected default page %+v", page)
	}

	if _, err := service.ListQuizzes(ctx, domain.QuizFilter{Difficulty: "IMPOSSIBLE"}); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected invalid difficulty, got %v", err)
	}
}

func TestGetQuizHidesCorrectAnswers(t *testing.T) {
	service, store := newQuizService()
	quizID := seedQ1(t, store)

	view, err := service.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if view.Title != "Q1" || len(view.Questions) != 2 || len(view.Questions[0].Options) != 4 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func newQuizService() (*app.QuizService, *memory.Store) {
	store := memory.NewStore()
	catalog := memory.NewQuizCatalog(memory.QuizLoaderFunc(store.Quizzes().FindQuiz), time.Minute)
	return app.NewQuizService(store, catalog, logger.Nop()), store
}

func intPtr(v int) *int {
	return &v
}

type txRecordingStore struct {
	*memory.Store
	opts []app.TxOptions
}

func (s *txRecordingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Repositories) error, opts ...app.TxOption) error {
	s.opts = append(s.opts, app.ApplyTxOptions(opts))
	return s.Store.WithinTx(ctx, fn, opts...)
}

func TestAddQuestionsRunsAtReadCommitted(t *testing.T) {
	ctx := context.Background()
	store := &txRecordingStore{Store: memory.NewStore()}
	catalog := memory.NewQuizCatalog(memory.QuizLoaderFunc(store.Quizzes().FindQuiz), time.Minute)
	service := app.NewQuizService(store, catalog, logger.Nop())

	quiz, err := service.CreateQuiz(ctx, admin, domain.NewQuiz{Title: "Go", Category: "programming", Difficulty: domain.DifficultyEasy})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.AddQuestions(ctx, admin, quiz.ID, []domain.NewQuestion{{Text: "q", Options: []string{"a", "b"}, CorrectOptionIndex: intPtr(1)}}); err != nil {
		t.Fatalf("add questions: %v", err)
	}
	if len(store.opts) != 1 || !store.opts[0].ReadCommitted {
		t.Fatalf("expected one read-committed transaction, got %+v", store.opts)
	}
}

type brokenInvalidation struct {
	app.QuizCatalog
}

func (brokenInvalidation) Invalidate(context.Context, int64) error {
	return errors.New("redis: connection refused")
}

func TestAddQuestionsLogsFailedInvalidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	catalog := brokenInvalidation{memory.NewQuizCatalog(memory.QuizLoaderFunc(store.Quizzes().FindQuiz), time.Minute)}
	core, logs := observer.New(zap.InfoLevel)
	service := app.NewQuizService(store, catalog, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	quiz, err := service.CreateQuiz(ctx, admin, domain.NewQuiz{Title: "Go", Category: "programming", Difficulty: domain.DifficultyEasy})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := service.AddQuestions(ctx, admin, quiz.ID, []domain.NewQuestion{{Text: "q", Options: []string{"a", "b"}, CorrectOptionIndex: intPtr(0)}})
	if err != nil {
		t.Fatalf("add questions should succeed despite cache failure: %v", err)
	}
	if len(got.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(got.Questions))
	}
	entries := logs.FilterMessage("quiz cache invalidation failed").All()
	if len(entries) != 1 || entries[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warn entry, got %+v", logs.All())
	}
	if entries[0].ContextMap()["quiz_id"] != quiz.ID {
		t.Fatalf("warn entry missing quiz id: %+v", entries[0].ContextMap())
	}
}
