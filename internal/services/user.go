package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"health-companion-backend/internal/database"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit in bytes
	maxUsernameLength = 80
)

// Claims is the identity carried by an access token
type Claims struct {
	UserID string
	Role   models.Role
}

// UserService handles registration and token-based authentication
type UserService struct {
	store      *repository.Store
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	clock      Clock
	ids        IDGenerator
}

// NewUserService creates a new user service
func NewUserService(store *repository.Store, jwtSecret string, tokenTTL time.Duration, clock Clock, ids IDGenerator) *UserService {
	return &UserService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		clock:      clock,
		ids:        ids,
	}
}

// WithBcryptCost overrides the hashing cost, mainly so tests stay fast
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// RegisterInput is the data needed to open an account
type RegisterInput struct {
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

func (in *RegisterInput) normalize() error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.Role = models.Role(strings.ToUpper(strings.TrimSpace(string(in.Role))))

	if in.Email == "" {
		return invalid("email", "is required")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return invalid("email", "is not a valid address")
	}
	if len(in.Username) < 3 || len(in.Username) > maxUsernameLength {
		return invalid("username", "must be between 3 and %d characters", maxUsernameLength)
	}
	if strings.Contains(in.Username, "@") {
		return invalid("username", "must not contain @")
	}
	if len(in.Password) < minPasswordLength {
		return invalid("password", "must be at least %d characters", minPasswordLength)
	}
	if len(in.Password) > maxPasswordLength {
		return invalid("password", "must be at most %d bytes", maxPasswordLength)
	}
	if !in.Role.Valid() {
		return invalid("role", "must be PATIENT or COMPANION")
	}
	return nil
}

// Register creates an account. The role is fixed for the life of the account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	users := s.store.Repos().Users
	exists, err := users.Exists(ctx, in.Email, in.Username)
	if err != nil {
		return nil, storageError("check user", err)
	}
	if exists {
		return nil, ErrDuplicate
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           s.ids.New(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    s.clock.Now(),
	}

	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, ErrDuplicate
		}
		return nil, storageError("create user", err)
	}

	log.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Msg("User registered")

	return user, nil
}

// Authenticate checks a login (email or username) and password and issues a token.
// Unknown logins and wrong passwords are indistinguishable.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (string, *models.User, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}

	user, err := s.store.Repos().Users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrUnauthorized
		}
		return "", nil, storageError("get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrUnauthorized
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GetUser returns a user by id
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.Repos().Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("get user", err)
	}
	return user, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(user *models.User) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the identity it carries
func (s *UserService) ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("user_id not found in token")
	}

	role := models.Role(fmt.Sprint(claims["role"]))
	if !role.Valid() {
		return nil, fmt.Errorf("role not found in token")
	}

	return &Claims{UserID: userID, Role: role}, nil
}
