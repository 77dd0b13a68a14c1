package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// Store is an in-memory implementation of app.Store.
// A transaction holds the write lock for its whole duration and undoes its writes on failure.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	quizzes  map[int64]domain.Quiz
	attempts map[int64]domain.Attempt

	nextUserID     int64
	nextQuizID     int64
	nextQuestionID int64
	nextAttemptID  int64
}

var _ app.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		quizzes:  make(map[int64]domain.Quiz),
		attempts: make(map[int64]domain.Attempt),
	}
}

func (s *Store) Users() app.UserDirectory { return userRepo{s.view()} }
func (s *Store) Quizzes() app.QuizRepository { return quizRepo{s.view()} }
func (s *Store) Attempts() app.AttemptRepository { return attemptRepo{s.view()} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Repositories) error, _ ...app.TxOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &view{s: s, inTx: true}
	if err := fn(ctx, tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

// AttemptCount reports how many attempts are stored.
func (s *Store) AttemptCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}

func (s *Store) view() *view {
	return &view{s: s}
}

// view is a set of repositories bound either to the shared lock or to a running transaction.
type view struct {
	s    *Store
	inTx bool
	undo []func()
}

func (v *view) Users() app.UserDirectory { return userRepo{v} }
func (v *view) Quizzes() app.QuizRepository { return quizRepo{v} }
func (v *view) Attempts() app.AttemptRepository { return attemptRepo{v} }

func (v *view) read(fn func()) {
	if v.inTx {
		fn()
		return
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	fn()
}

// write runs fn, which returns the closure that reverts it.
func (v *view) write(fn func() func()) {
	if v.inTx {
		v.undo = append(v.undo, fn())
		return
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	fn()
}

type userRepo struct{ v *view }

func (r userRepo) FindByUsername(_ context.Context, username string) (domain.User, error) {
	var (
		user domain.User
		ok   bool
	)
	r.v.read(func() { user, ok = r.v.s.users[username] })
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (r userRepo) EnsureUser(_ context.Context, username string, role domain.Role) (domain.User, error) {
	var user domain.User
	r.v.write(func() func() {
		s := r.v.s
		prev, existed := s.users[username]
		if existed {
			user = prev
			user.Role = role
		} else {
			s.nextUserID++
			user = domain.User{ID: s.nextUserID, Username: username, Role: role}
		}
		s.users[username] = user
		return func() {
			if existed {
				s.users[username] = prev
			} else {
				delete(s.users, username)
			}
		}
	})
	return user, nil
}

type quizRepo struct{ v *view }

func (r quizRepo) FindQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		ok   bool
	)
	r.v.read(func() {
		quiz, ok = r.v.s.quizzes[quizID]
		quiz = cloneQuiz(quiz)
	})
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (r quizRepo) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	r.v.write(func() func() {
		s := r.v.s
		s.nextQuizID++
		quiz.ID = s.nextQuizID
		quiz.Questions = nil
		s.quizzes[quiz.ID] = cloneQuiz(quiz)
		id := quiz.ID
		return func() { delete(s.quizzes, id) }
	})
	return quiz, nil
}

func (r quizRepo) AddQuestions(_ context.Context, quizID int64, questions []domain.Question) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		err  error
	)
	r.v.write(func() func() {
		s := r.v.s
		prev, ok := s.quizzes[quizID]
		if !ok {
			err = domain.ErrQuizNotFound
			return func() {}
		}
		updated := cloneQuiz(prev)
		for _, q := range questions {
			s.nextQuestionID++
			q.ID = s.nextQuestionID
			q.QuizID = quizID
			q.Options = append([]string(nil), q.Options...)
			updated.Questions = append(updated.Questions, q)
		}
		s.quizzes[quizID] = updated
		quiz = cloneQuiz(updated)
		return func() { s.quizzes[quizID] = prev }
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (r quizRepo) ListQuizzes(_ context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	var matched []domain.QuizSummary
	r.v.read(func() {
		for _, quiz := range r.v.s.quizzes {
			if filter.Category != "" && quiz.Category != filter.Category {
				continue
			}
			if filter.Difficulty != "" && quiz.Difficulty != filter.Difficulty {
				continue
			}
			matched = append(matched, quiz.Summary())
		}
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := domain.QuizPage{Page: filter.Page, Size: filter.Size, Total: int64(len(matched)), Items: []domain.QuizSummary{}}
	start := filter.Page * filter.Size
	if start >= len(matched) {
		return page, nil
	}
	end := start + filter.Size
	if end > len(matched) {
		end = len(matched)
	}
	page.Items = append(page.Items, matched[start:end]...)
	return page, nil
}

type attemptRepo struct{ v *view }

func (r attemptRepo) SaveAttempt(_ context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	var err error
	r.v.write(func() func() {
		s := r.v.s
		if _, ok := s.quizzes[attempt.QuizID]; !ok {
			err = fmt.Errorf("save attempt: %w", domain.ErrQuizNotFound)
			return func() {}
		}
		s.nextAttemptID++
		attempt.ID = s.nextAttemptID
		s.attempts[attempt.ID] = attempt
		id := attempt.ID
		return func() { delete(s.attempts, id) }
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

func (r attemptRepo) FindAttempt(_ context.Context, attemptID int64) (domain.Attempt, error) {
	var (
		attempt domain.Attempt
		ok      bool
	)
	r.v.read(func() { attempt, ok = r.v.s.attempts[attemptID] })
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	if q.Questions == nil {
		return q
	}
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	return q
}
