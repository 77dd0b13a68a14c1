package domain

import "time"

// Difficulty grades a quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Role is the coarse permission level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is a registered account as seen by the quiz service.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Principal is the authenticated caller of a single request.
type Principal struct {
	Username string
	Role     Role
}

// IsAdmin reports whether the caller may author quizzes.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID                 int64    `json:"id"`
	QuizID             int64    `json:"quizId"`
	Text               string   `json:"text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	CreatedAt  time.Time  `json:"createdAt"`
	Questions  []Question `json:"questions"`
}

// Attempt is one user's graded submission. It is never updated after creation.
type Attempt struct {
	ID          int64
	UserID      int64
	Username    string
	QuizID      int64
	Score       float64
	Answers     string // encoded AnswerSet
	SubmittedAt time.Time
}

// AttemptResult is the response shape of both submit and result lookups.
type AttemptResult struct {
	ID             int64     `json:"id"`
	QuizID         int64     `json:"quizId"`
	QuizTitle      string    `json:"quizTitle"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	SubmittedAt    time.Time `json:"submittedAt"`
	UserAnswers    AnswerSet `json:"userAnswers"`
}

// NewQuiz is the authoring input for a quiz.
type NewQuiz struct {
	Title      string     `json:"title" validate:"required"`
	Category   string     `json:"category" validate:"required"`
	Difficulty Difficulty `json:"difficulty" validate:"required,oneof=EASY MEDIUM HARD"`
}

// NewQuestion is the authoring input for a question.
type NewQuestion struct {
	Text               string   `json:"text" validate:"required"`
	Options            []string `json:"options" validate:"required,min=1,dive,required"`
	CorrectOptionIndex *int     `json:"correctOptionIndex" validate:"required,min=0"`
}

// QuizFilter narrows catalog listings. Zero values mean "any".
type QuizFilter struct {
	Category   string
	Difficulty Difficulty
	Page       int
	Size       int
}

// QuizSummary is a catalog entry without questions.
type QuizSummary struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// QuizPage is one page of catalog entries.
type QuizPage struct {
	Items []QuizSummary `json:"items"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
	Total int64         `json:"total"`
}

// QuestionView is a question as shown to quiz takers; the correct index is omitted.
type QuestionView struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// QuizView is a quiz as shown to quiz takers.
type QuizView struct {
	QuizSummary
	Questions []QuestionView `json:"questions"`
}

// Summary drops the questions from q.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:         q.ID,
		Title:      q.Title,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		CreatedAt:  q.CreatedAt,
	}
}

// View strips grading data from q.
func (q Quiz) View() QuizView {
	questions := make([]QuestionView, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, QuestionView{
			ID:      question.ID,
			Text:    question.Text,
			Options: append([]string(nil), question.Options...),
		})
	}
	return QuizView{QuizSummary: q.Summary(), Questions: questions}
}

// Notification is the post-submission message handed to delivery sinks.
type Notification struct {
	Username  string    `json:"username"`
	QuizTitle string    `json:"quizTitle"`
	Score     float64   `json:"score"`
	SentAt    time.Time `json:"sentAt"`
}
