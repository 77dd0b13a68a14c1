package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

// QuizUseCases is the authoring and catalog surface served over HTTP.
type QuizUseCases interface {
	CreateQuiz(ctx context.Context, caller domain.Principal, in domain.NewQuiz) (domain.Quiz, error)
	AddQuestions(ctx context.Context, caller domain.Principal, quizID int64, in []domain.NewQuestion) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error)
	GetQuiz(ctx context.Context, quizID int64) (domain.QuizView, error)
}

// TokenVerifier turns a bearer token into the caller's principal.
type TokenVerifier interface {
	Verify(raw string) (domain.Principal, error)
}

type RouterConfig struct {
	Attempts     app.Attempts
	Quizzes      QuizUseCases
	Tokens       TokenVerifier
	Feed         NotificationFeed
	Log          *logger.Logger
	AllowOrigins []string
}

// NewRouter builds the gin engine with every route of the service.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(cfg.Log))
	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	authed := r.Group("/", requireAuth(cfg.Tokens))

	quizzes := NewQuizHandler(cfg.Quizzes)
	authed.POST("/quizzes", quizzes.Create)
	authed.POST("/quizzes/:quizId/questions", quizzes.AddQuestions)
	authed.GET("/quizzes", quizzes.List)
	authed.GET("/quizzes/:quizId", quizzes.Get)

	attempts := NewAttemptHandler(cfg.Attempts)
	authed.POST("/quizzes/:quizId/attempt", attempts.Submit)
	authed.GET("/results/:attemptId", attempts.Result)

	if cfg.Feed != nil {
		r.GET("/ws/notifications", requireStreamAuth(cfg.Tokens), NewWSHandler(cfg.Feed, cfg.Log).Serve)
	}
	return r
}
