package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quiz-attempt-service/internal/domain"
)

type QuizHandler struct {
	quizzes QuizUseCases
}

func NewQuizHandler(quizzes QuizUseCases) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

func (h *QuizHandler) Create(c *gin.Context) {
	var in domain.NewQuiz
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid quiz payload")
		return
	}
	principal, _ := principalFrom(c)
	quiz, err := h.quizzes.CreateQuiz(c.Request.Context(), principal, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) AddQuestions(c *gin.Context) {
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return
	}
	var in []domain.NewQuestion
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid questions payload")
		return
	}
	principal, _ := principalFrom(c)
	quiz, err := h.quizzes.AddQuestions(c.Request.Context(), principal, quizID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) List(c *gin.Context) {
	filter := domain.QuizFilter{
		Category:   c.Query("category"),
		Difficulty: domain.Difficulty(c.Query("difficulty")),
	}
	var err error
	if filter.Page, err = queryInt(c, "page", 0); err != nil {
		badRequest(c, "page must be an integer")
		return
	}
	if filter.Size, err = queryInt(c, "size", 0); err != nil {
		badRequest(c, "size must be an integer")
		return
	}
	page, err := h.quizzes.ListQuizzes(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *QuizHandler) Get(c *gin.Context) {
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return
	}
	view, err := h.quizzes.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
