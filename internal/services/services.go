package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aididalam/tasktrack/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrTaskNotFound         = errors.New("task not found")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrFilterNotFound       = errors.New("filter not found")
)

type AuthService interface {
	// Login authenticates the user by email and password.
	//
	// It deletes all sessions with the same user ID, creates a new
	// session and generates a fresh token pair.
	//
	// It returns ErrUserNotFound if the user with the given
	// email doesn't exist or ErrUserPasswordMismatch if the
	// given password doesn't match the user's password.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Refresh rotates the session with the given refresh token.
	//
	// It returns ErrSessionNotFound if the session with the
	// given refresh token doesn't exist or ErrSessionExpired
	// if the session is expired.
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)

	// Register creates a user with the given name, email and password.
	//
	// It hashes the password, generates a unique ID and creates a
	// session with a fresh token pair.
	//
	// It returns ErrUserAlreadyExists if the user
	// with the given email already exists.
	Register(ctx context.Context, params RegisterParams) (*LoginResult, error)

	// Logout invalidates all sessions with the given user ID.
	Logout(ctx context.Context, userID string) error

	// GetUserByID returns the user profile for the /me endpoint.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// ParseJWTToken parses the given JWT token and returns the registered
	// claims or jwt.ErrTokenExpired if the token is expired.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type SessionService interface {
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
}

// TaskService orchestrates the task collection, the persisted per-user
// filter and the mutation broadcast. It is the only component that
// sequences the other three.
type TaskService interface {
	// ListTasks stores the incoming filter as the user's current one,
	// then returns the task list narrowed by it. The filter is stored
	// even when every field is empty; an empty submission clears the
	// previous criteria.
	ListTasks(ctx context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error)

	// CreateTask persists a new task and returns the user's task list
	// narrowed by the stored filter. The stored filter may exclude the
	// task that was just created; the returned list reflects the
	// filter, not the new row.
	CreateTask(ctx context.Context, params CreateTaskParams) ([]*models.Task, error)

	// UpdateTask applies a partial patch to the user's task.
	// It returns ErrTaskNotFound if the task doesn't exist or
	// belongs to another user.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error)

	// DeleteTask permanently removes the user's task.
	// It returns ErrTaskNotFound if the task doesn't exist or
	// belongs to another user.
	DeleteTask(ctx context.Context, taskID, userID string) error
}

// TaskRepository is owner-scoped task CRUD. Every operation is keyed by
// the requesting user; a task owned by someone else surfaces as
// ErrTaskNotFound, never as a permission error.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, taskID, userID string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, taskID, userID string) error
	ListByUserID(ctx context.Context, userID string) ([]*models.Task, error)
}

// FilterStore keeps at most one filter row per user.
type FilterStore interface {
	// Upsert replaces the user's stored filter wholesale.
	// Last writer wins; there is no merge.
	Upsert(ctx context.Context, userID string, filter models.TaskFilter) error

	// Get returns the most recently stored filter or ErrFilterNotFound
	// for a user who has never listed tasks.
	Get(ctx context.Context, userID string) (*models.TaskFilter, error)
}

// Publisher fans a mutation event out to live listeners.
// Implementations absorb every delivery failure; Publish never
// returns an error and must not block the mutation path.
type Publisher interface {
	Publish(ctx context.Context, event models.TaskEvent)
}

type LoginParams struct {
	Email    string
	Password string
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

type LoginResult struct {
	User                  *models.User
	SessionID             string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

type CreateTaskParams struct {
	UserID      string
	Name        string
	Description string
	Status      string
	DueDate     *models.Date
}

// UpdateTaskParams is the allow-listed partial patch for a task.
// Nil fields are left untouched.
type UpdateTaskParams struct {
	ID     string
	UserID string

	Name        *string
	Description *string
	Status      *string
	DueDate     *models.Date
}
