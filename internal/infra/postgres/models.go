package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quiz-attempt-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,notnull"`
	Role     string `bun:"role,notnull"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID         int64         `bun:"id,pk,autoincrement"`
	Title      string        `bun:"title,notnull"`
	Category   string        `bun:"category,notnull"`
	Difficulty string        `bun:"difficulty,notnull"`
	CreatedAt  time.Time     `bun:"created_at,notnull"`
	Questions  []questionRow `bun:"rel:has-many,join:id=quiz_id"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID                 int64    `bun:"id,pk,autoincrement"`
	QuizID             int64    `bun:"quiz_id,notnull"`
	Position           int      `bun:"position,notnull"`
	Text               string   `bun:"text,notnull"`
	Options            []string `bun:"options,type:jsonb,notnull"`
	CorrectOptionIndex int      `bun:"correct_option_index,notnull"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull"`
	QuizID      int64     `bun:"quiz_id,notnull"`
	Score       float64   `bun:"score,notnull"`
	Answers     string    `bun:"answers,notnull"`
	SubmittedAt time.Time `bun:"submitted_at,notnull"`
	User        *userRow  `bun:"rel:belongs-to,join:user_id=id"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{ID: r.ID, Username: r.Username, Role: domain.Role(r.Role)}
}

func (r quizRow) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:         r.ID,
		Title:      r.Title,
		Category:   r.Category,
		Difficulty: domain.Difficulty(r.Difficulty),
		CreatedAt:  r.CreatedAt.UTC(),
		Questions:  make([]domain.Question, 0, len(r.Questions)),
	}
	for _, q := range r.Questions {
		quiz.Questions = append(quiz.Questions, q.toDomain())
	}
	return quiz
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:                 r.ID,
		QuizID:             r.QuizID,
		Text:               r.Text,
		Options:            append([]string(nil), r.Options...),
		CorrectOptionIndex: r.CorrectOptionIndex,
	}
}

func (r attemptRow) toDomain() domain.Attempt {
	attempt := domain.Attempt{
		ID:          r.ID,
		UserID:      r.UserID,
		QuizID:      r.QuizID,
		Score:       r.Score,
		Answers:     r.Answers,
		SubmittedAt: r.SubmittedAt.UTC(),
	}
	if r.User != nil {
		attempt.Username = r.User.Username
	}
	return attempt
}
