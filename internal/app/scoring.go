package app

import "quiz-attempt-service/internal/domain"

// Tally is the outcome of grading one answer set.
type Tally struct {
	Correct    int
	Total      int
	Percentage float64
}

// Score grades answers against questions. Missing answers count as wrong, answers for
// unknown questions are ignored, and a quiz without questions scores 0.
func Score(questions []domain.Question, answers domain.AnswerSet) Tally {
	tally := Tally{Total: len(questions)}
	for _, question := range questions {
		if selected, ok := answers[question.ID]; ok && selected == question.CorrectOptionIndex {
			tally.Correct++
		}
	}
	if tally.Total > 0 {
		tally.Percentage = float64(tally.Correct) * 100.0 / float64(tally.Total)
	}
	return tally
}
