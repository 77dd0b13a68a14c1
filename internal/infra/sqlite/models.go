package sqlite

import (
	"time"

	"quiz-attempt-service/internal/domain"
)

type userModel struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;not null"`
	Role     string `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

type quizModel struct {
	ID         int64           `gorm:"primaryKey"`
	Title      string          `gorm:"not null"`
	Category   string          `gorm:"index:idx_quiz_filter;not null"`
	Difficulty string          `gorm:"index:idx_quiz_filter;not null"`
	CreatedAt  time.Time       `gorm:"not null"`
	Questions  []questionModel `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE"`
}

func (quizModel) TableName() string { return "quizzes" }

type questionModel struct {
	ID                 int64    `gorm:"primaryKey"`
	QuizID             int64    `gorm:"uniqueIndex:idx_question_position;not null"`
	Position           int      `gorm:"uniqueIndex:idx_question_position;not null"`
	Text               string   `gorm:"not null"`
	Options            []string `gorm:"serializer:json;type:text;not null"`
	CorrectOptionIndex int      `gorm:"not null"`
}

func (questionModel) TableName() string { return "questions" }

type attemptModel struct {
	ID          int64     `gorm:"primaryKey"`
	UserID      int64     `gorm:"index;not null"`
	User        userModel `gorm:"foreignKey:UserID"`
	QuizID      int64     `gorm:"index;not null"`
	Score       float64   `gorm:"not null"`
	Answers     string    `gorm:"not null"`
	SubmittedAt time.Time `gorm:"not null"`
}

func (attemptModel) TableName() string { return "attempts" }

func (m userModel) toDomain() domain.User {
	return domain.User{ID: m.ID, Username: m.Username, Role: domain.Role(m.Role)}
}

func (m quizModel) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:         m.ID,
		Title:      m.Title,
		Category:   m.Category,
		Difficulty: domain.Difficulty(m.Difficulty),
		CreatedAt:  m.CreatedAt.UTC(),
		Questions:  make([]domain.Question, 0, len(m.Questions)),
	}
	for _, q := range m.Questions {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:                 q.ID,
			QuizID:             q.QuizID,
			Text:               q.Text,
			Options:            append([]string(nil), q.Options...),
			CorrectOptionIndex: q.CorrectOptionIndex,
		})
	}
	return quiz
}

func (m attemptModel) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:          m.ID,
		UserID:      m.UserID,
		Username:    m.User.Username,
		QuizID:      m.QuizID,
		Score:       m.Score,
		Answers:     m.Answers,
		SubmittedAt: m.SubmittedAt.UTC(),
	}
}
