package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

const demoCategory = "general"

// The memory store does not outlive the seed process; start seeds it instead.
var errMemorySeed = errors.New("seed needs a persistent storage driver (postgres or sqlite); the memory driver is seeded by start")

// NewSeedCmd loads demo users and a demo quiz.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo users and a demo quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.StorageDriver() == config.DriverMemory {
		return errMemorySeed
	}

	d, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	return seed(ctx, d.store, app.NewQuizService(d.store, d.catalog, log), log)
}

func seed(ctx context.Context, store app.Store, quizzes *app.QuizService, log *logger.Logger) error {
	users := []struct {
		name string
		role domain.Role
	}{
		{"alice", domain.RoleUser},
		{"bob", domain.RoleUser},
		{"admin", domain.RoleAdmin},
	}
	for _, u := range users {
		if _, err := store.Users().EnsureUser(ctx, u.name, u.role); err != nil {
			return fmt.Errorf("seed user %s: %w", u.name, err)
		}
	}

	existing, err := quizzes.ListQuizzes(ctx, domain.QuizFilter{Category: demoCategory, Size: 1})
	if err != nil {
		return err
	}
	if existing.Total > 0 {
		log.Info("demo quiz already present", "quiz_id", existing.Items[0].ID)
		return nil
	}

	admin := domain.Principal{Username: "admin", Role: domain.RoleAdmin}
	quiz, err := quizzes.CreateQuiz(ctx, admin, domain.NewQuiz{
		Title:      "General Knowledge",
		Category:   demoCategory,
		Difficulty: domain.DifficultyEasy,
	})
	if err != nil {
		return fmt.Errorf("seed quiz: %w", err)
	}
	quiz, err = quizzes.AddQuestions(ctx, admin, quiz.ID, []domain.NewQuestion{
		{Text: "What is 2 + 2?", Options: []string{"3", "5", "4"}, CorrectOptionIndex: intPtr(2)},
		{Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter"}, CorrectOptionIndex: intPtr(1)},
		{Text: "What is the capital of France?", Options: []string{"Paris", "Rome", "Madrid", "Berlin"}, CorrectOptionIndex: intPtr(0)},
	})
	if err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	log.Info("demo data seeded", "users", len(users), "quiz_id", quiz.ID, "questions", len(quiz.Questions))
	return nil
}

func intPtr(v int) *int { return &v }
