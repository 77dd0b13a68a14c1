package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sqlitedriver "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// Store is an embedded SQLite implementation of app.Store, built on gorm.
type Store struct {
	db *gorm.DB
}

var _ app.Store = (*Store)(nil)

// Open opens (creating if needed) the database file at path with foreign keys enforced.
// SQLite allows one writer, so the pool is pinned to a single connection.
func Open(path string) (*gorm.DB, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlitedriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&userModel{}, &quizModel{}, &questionModel{}, &attemptModel{})
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() app.UserDirectory        { return userRepo{s.db} }
func (s *Store) Quizzes() app.QuizRepository     { return quizRepo{s.db} }
func (s *Store) Attempts() app.AttemptRepository { return attemptRepo{s.db} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Repositories) error, _ ...app.TxOption) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, txRepos{tx})
	})
}

type txRepos struct{ db *gorm.DB }

func (r txRepos) Users() app.UserDirectory        { return userRepo(r) }
func (r txRepos) Quizzes() app.QuizRepository     { return quizRepo(r) }
func (r txRepos) Attempts() app.AttemptRepository { return attemptRepo(r) }

type userRepo struct{ db *gorm.DB }

func (r userRepo) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return m.toDomain(), nil
}

func (r userRepo) EnsureUser(ctx context.Context, username string, role domain.Role) (domain.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).First(&m).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			m = userModel{Username: username, Role: string(role)}
			return tx.Create(&m).Error
		case err != nil:
			return err
		}
		m.Role = string(role)
		return tx.Model(&m).Update("role", m.Role).Error
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return m.toDomain(), nil
}

type quizRepo struct{ db *gorm.DB }

func (r quizRepo) FindQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var m quizModel
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&m, quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("find quiz: %w", err)
	}
	return m.toDomain(), nil
}

func (r quizRepo) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	m := quizModel{
		Title:      quiz.Title,
		Category:   quiz.Category,
		Difficulty: string(quiz.Difficulty),
		CreatedAt:  quiz.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return m.toDomain(), nil
}

func (r quizRepo) AddQuestions(ctx context.Context, quizID int64, questions []domain.Question) (domain.Quiz, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&quizModel{}).Where("id = ?", quizID).Count(&count).Error; err != nil {
		return domain.Quiz{}, fmt.Errorf("add questions: %w", err)
	}
	if count == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}

	var last int
	if err := db.Model(&questionModel{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&last).Error; err != nil {
		return domain.Quiz{}, fmt.Errorf("question position: %w", err)
	}

	if len(questions) > 0 {
		rows := make([]questionModel, 0, len(questions))
		for i, q := range questions {
			rows = append(rows, questionModel{
				QuizID:             quizID,
				Position:           last + 1 + i,
				Text:               q.Text,
				Options:            append([]string(nil), q.Options...),
				CorrectOptionIndex: q.CorrectOptionIndex,
			})
		}
		if err := db.Create(&rows).Error; err != nil {
			return domain.Quiz{}, fmt.Errorf("insert questions: %w", err)
		}
	}
	return r.FindQuiz(ctx, quizID)
}

func (r quizRepo) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	matching := func(db *gorm.DB) *gorm.DB {
		if filter.Category != "" {
			db = db.Where("category = ?", filter.Category)
		}
		if filter.Difficulty != "" {
			db = db.Where("difficulty = ?", string(filter.Difficulty))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&quizModel{}).Scopes(matching).Count(&total).Error; err != nil {
		return domain.QuizPage{}, fmt.Errorf("count quizzes: %w", err)
	}
	var rows []quizModel
	if err := r.db.WithContext(ctx).
		Scopes(matching).
		Order("id ASC").
		Limit(filter.Size).
		Offset(filter.Page * filter.Size).
		Find(&rows).Error; err != nil {
		return domain.QuizPage{}, fmt.Errorf("list quizzes: %w", err)
	}

	page := domain.QuizPage{Page: filter.Page, Size: filter.Size, Total: total, Items: make([]domain.QuizSummary, 0, len(rows))}
	for _, m := range rows {
		page.Items = append(page.Items, m.toDomain().Summary())
	}
	return page, nil
}

type attemptRepo struct{ db *gorm.DB }

func (r attemptRepo) SaveAttempt(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&quizModel{}).Where("id = ?", attempt.QuizID).Count(&count).Error; err != nil {
		return domain.Attempt{}, fmt.Errorf("save attempt: %w", err)
	}
	if count == 0 {
		return domain.Attempt{}, fmt.Errorf("save attempt: %w", domain.ErrQuizNotFound)
	}

	m := attemptModel{
		UserID:      attempt.UserID,
		QuizID:      attempt.QuizID,
		Score:       attempt.Score,
		Answers:     attempt.Answers,
		SubmittedAt: attempt.SubmittedAt,
	}
	if err := db.Omit(clause.Associations).Create(&m).Error; err != nil {
		return domain.Attempt{}, fmt.Errorf("save attempt: %w", err)
	}
	attempt.ID = m.ID
	return attempt, nil
}

func (r attemptRepo) FindAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	var m attemptModel
	err := r.db.WithContext(ctx).Preload("User").First(&m, attemptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("find attempt: %w", err)
	}
	return m.toDomain(), nil
}
