package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// Store is the Postgres implementation of app.Store, built on bun.
type Store struct {
	db *bun.DB
}

var _ app.Store = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Open connects bun to the Postgres instance at dsn.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (s *Store) Users() app.UserDirectory        { return userRepo{s.db} }
func (s *Store) Quizzes() app.QuizRepository     { return quizRepo{s.db} }
func (s *Store) Attempts() app.AttemptRepository { return attemptRepo{s.db} }

// WithinTx runs fn in a repeatable-read transaction so a quiz and its questions are read from one snapshot.
// app.ReadCommitted switches to read committed.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Repositories) error, opts ...app.TxOption) error {
	return s.db.RunInTx(ctx, txOptions(opts), func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, txRepos{tx})
	})
}

func txOptions(opts []app.TxOption) *sql.TxOptions {
	if app.ApplyTxOptions(opts).ReadCommitted {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
}

type txRepos struct{ db bun.IDB }

func (r txRepos) Users() app.UserDirectory        { return userRepo(r) }
func (r txRepos) Quizzes() app.QuizRepository     { return quizRepo(r) }
func (r txRepos) Attempts() app.AttemptRepository { return attemptRepo(r) }

type userRepo struct{ db bun.IDB }

func (r userRepo) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	row := new(userRow)
	err := r.db.NewSelect().Model(row).Where("u.username = ?", username).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return row.toDomain(), nil
}

func (r userRepo) EnsureUser(ctx context.Context, username string, role domain.Role) (domain.User, error) {
	row := &userRow{Username: username, Role: string(role)}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (username) DO UPDATE").
		Set("role = EXCLUDED.role").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("ensure user: %w", err)
	}
	return row.toDomain(), nil
}

type quizRepo struct{ db bun.IDB }

func (r quizRepo) FindQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	row := new(quizRow)
	err := r.db.NewSelect().
		Model(row).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("position ASC, id ASC")
		}).
		Where("q.id = ?", quizID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("find quiz: %w", err)
	}
	return row.toDomain(), nil
}

func (r quizRepo) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	row := &quizRow{
		Title:      quiz.Title,
		Category:   quiz.Category,
		Difficulty: string(quiz.Difficulty),
		CreatedAt:  quiz.CreatedAt,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return row.toDomain(), nil
}

// AddQuestions appends questions after the quiz's current last position.
// The quiz row is locked before reading the last position, so callers must run it at
// read committed: a repeatable-read snapshot taken before the lock misses rows appended
// by the transaction that held it.
func (r quizRepo) AddQuestions(ctx context.Context, quizID int64, questions []domain.Question) (domain.Quiz, error) {
	var locked int64
	err := r.db.NewSelect().
		Table("quizzes").
		Column("id").
		Where("id = ?", quizID).
		For("UPDATE").
		Scan(ctx, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("lock quiz: %w", err)
	}

	var last int
	err = r.db.NewSelect().
		Table("questions").
		ColumnExpr("COALESCE(MAX(position), -1)").
		Where("quiz_id = ?", quizID).
		Scan(ctx, &last)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("question position: %w", err)
	}

	if len(questions) > 0 {
		rows := make([]questionRow, 0, len(questions))
		for i, q := range questions {
			rows = append(rows, questionRow{
				QuizID:             quizID,
				Position:           last + 1 + i,
				Text:               q.Text,
				Options:            append([]string(nil), q.Options...),
				CorrectOptionIndex: q.CorrectOptionIndex,
			})
		}
		if _, err := r.db.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
			return domain.Quiz{}, fmt.Errorf("insert questions: %w", err)
		}
	}
	return r.FindQuiz(ctx, quizID)
}

func (r quizRepo) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	var rows []quizRow
	q := r.db.NewSelect().Model(&rows)
	if filter.Category != "" {
		q = q.Where("q.category = ?", filter.Category)
	}
	if filter.Difficulty != "" {
		q = q.Where("q.difficulty = ?", string(filter.Difficulty))
	}
	total, err := q.
		Order("q.id ASC").
		Limit(filter.Size).
		Offset(filter.Page * filter.Size).
		ScanAndCount(ctx)
	if err != nil {
		return domain.QuizPage{}, fmt.Errorf("list quizzes: %w", err)
	}

	page := domain.QuizPage{Page: filter.Page, Size: filter.Size, Total: int64(total), Items: make([]domain.QuizSummary, 0, len(rows))}
	for _, row := range rows {
		page.Items = append(page.Items, row.toDomain().Summary())
	}
	return page, nil
}

type attemptRepo struct{ db bun.IDB }

func (r attemptRepo) SaveAttempt(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	row := &attemptRow{
		UserID:      attempt.UserID,
		QuizID:      attempt.QuizID,
		Score:       attempt.Score,
		Answers:     attempt.Answers,
		SubmittedAt: attempt.SubmittedAt,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return domain.Attempt{}, fmt.Errorf("save attempt: %w", err)
	}
	attempt.ID = row.ID
	return attempt, nil
}

func (r attemptRepo) FindAttempt(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	row := new(attemptRow)
	err := r.db.NewSelect().
		Model(row).
		Relation("User").
		Where("a.id = ?", attemptID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("find attempt: %w", err)
	}
	return row.toDomain(), nil
}
