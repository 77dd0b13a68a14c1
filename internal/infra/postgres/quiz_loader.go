package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
)

// QuizLoader reads a quiz with its ordered questions straight from the pool.
// It backs the catalog cache, which sits outside the attempt transactions.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var (
		quiz       domain.Quiz
		difficulty string
	)
	err = tx.QueryRow(ctx,
		`SELECT id, title, category, difficulty, created_at FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.Category, &difficulty, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.Difficulty = domain.Difficulty(difficulty)
	quiz.CreatedAt = quiz.CreatedAt.UTC()

	rows, err := tx.Query(ctx,
		`SELECT id, text, options, correct_option_index FROM questions WHERE quiz_id=$1 ORDER BY position, id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	quiz.Questions = []domain.Question{}
	for rows.Next() {
		var (
			q   = domain.Question{QuizID: quizID}
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.Text, &raw, &q.CorrectOptionIndex); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return domain.Quiz{}, fmt.Errorf("unmarshal options: %w", err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}
