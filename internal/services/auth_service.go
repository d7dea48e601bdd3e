package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/repositories"
)

// ErrInvalidCredentials is returned for a bad email or password. The two
// cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken is returned when registering with an email that already
// has an account.
var ErrEmailTaken = errors.New("a user with this email already exists")

// tokenTTL is how long issued tokens stay valid.
const tokenTTL = 72 * time.Hour

// AuthService authenticates users and issues JWT tokens.
type AuthService struct {
	userRepo  repositories.UserRepositoryInterface
	jwtSecret string
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepositoryInterface, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

// Login checks the credentials and returns a signed token and the user
// with the password hash cleared.
func (s *AuthService) Login(email, password string) (string, *models.User, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}

	user.Password = ""
	return tokenString, user, nil
}

// ValidateToken parses and verifies a token and returns the user it names.
func (s *AuthService) ValidateToken(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid user id in token")
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, errors.New("user from token not found")
	}
	user.Password = ""
	return user, nil
}

// Register creates a new user account with the Employee role.
func (s *AuthService) Register(email, password, firstName, lastName string) (*models.User, error) {
	_, err := s.userRepo.FindByEmail(email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}

	newUser := &models.User{
		Email:     email,
		Password:  password, // hashed by the repository
		FirstName: firstName,
		LastName:  lastName,
		Role:      models.RoleEmployee,
	}
	if err := s.userRepo.CreateUser(newUser); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return newUser, nil
}
