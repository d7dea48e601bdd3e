package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
)

// ErrUserNotFound is returned when no user matches an id or email.
var ErrUserNotFound = errors.New("user not found")

// UserRepositoryInterface defines the user store operations the services need.
type UserRepositoryInterface interface {
	FindByEmail(email string) (*models.User, error)
	FindByID(id string) (*models.User, error)
	CreateUser(user *models.User) error
	List() ([]models.User, error)
}

// UserRepository implements UserRepositoryInterface over MySQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password, first_name, last_name, role`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.Role)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmail returns the user with the given email or ErrUserNotFound.
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER(?)`
	u, err := scanUser(r.db.QueryRow(query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user %q: %w", email, err)
	}
	return u, nil
}

// FindByID returns the user with the given id or ErrUserNotFound.
func (r *UserRepository) FindByID(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user %s: %w", id, err)
	}
	return u, nil
}

// CreateUser inserts a new user. The plaintext password on the model is
// hashed here and cleared before returning.
func (r *UserRepository) CreateUser(user *models.User) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("[UserRepository.CreateUser] rollback error: %v", rbErr)
			}
		}
	}()

	var nextID int64
	if txErr = tx.QueryRow(
		`SELECT COALESCE(MAX(CAST(id AS UNSIGNED)), 0) + 1 FROM users`,
	).Scan(&nextID); txErr != nil {
		return fmt.Errorf("computing next user id: %w", txErr)
	}
	user.ID = fmt.Sprintf("%d", nextID)

	if _, txErr = tx.Exec(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, string(hashed), user.FirstName, user.LastName, user.Role,
	); txErr != nil {
		return fmt.Errorf("inserting user: %w", txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("committing user %s: %w", user.ID, txErr)
	}

	user.Password = ""
	return nil
}

// List returns all users.
func (r *UserRepository) List() ([]models.User, error) {
	rows, err := r.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY CAST(id AS UNSIGNED)`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			log.Printf("[UserRepository.List] scan error: %v", err)
			continue
		}
		u.Password = ""
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}
