// Package user provides the application layer for accounts: signup, login
// and API tokens.
package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/domain/user"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/internal/ports/outbound"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

// Login outcomes recorded in metrics
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

var usernameTag = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// reservedUsernames collide with top-level web routes
var reservedUsernames = map[string]bool{
	"api": true, "livereload": true, "login": true, "logout": true, "signup": true, "static": true,
}

// SignupCommand contains the signup form
type SignupCommand struct {
	Username string `validate:"required,min=3,max=30,username,notreserved"`
	Password string `validate:"required,min=8,max=72"`
	Confirm  string `validate:"required,eqfield=Password"`
}

// Service implements account use cases
type Service struct {
	repo       outbound.UserRepository
	tokens     *TokenIssuer
	validate   *validator.Validate
	bcryptCost int
	metrics    *monitoring.MetricsCollector
	logger     *zap.Logger
}

// NewService creates a new account service. metrics may be nil.
func NewService(
	repo outbound.UserRepository,
	tokens *TokenIssuer,
	bcryptCost int,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) *Service {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameTag.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
		return !reservedUsernames[strings.ToLower(fl.Field().String())]
	})

	return &Service{
		repo:       repo,
		tokens:     tokens,
		validate:   v,
		bcryptCost: bcryptCost,
		metrics:    metrics,
		logger:     logger.Named("user-service"),
	}
}

// Register creates an account with the default targets
func (s *Service) Register(ctx context.Context, cmd SignupCommand) (int64, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return 0, signupError(err)
	}

	u, err := user.NewUser(cmd.Username, cmd.Password, s.bcryptCost)
	if err != nil {
		return 0, apperrors.NewValidationError(err.Error())
	}

	id, err := s.repo.CreateUser(ctx, u, nutrition.DefaultTarget)
	if apperrors.Is(err, apperrors.CodeUsernameAlreadyExists) {
		return 0, apperrors.NewValidationError("That username is already taken. Try another one!")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.UserRegistered()
	s.logger.Info("User registered", zap.String("username", u.Username()), zap.Int64("user_id", id))
	return id, nil
}

// signupError turns the first failed rule into a form message
func signupError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError("Invalid signup form.")
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Username":
		if fe.Tag() == "notreserved" {
			return apperrors.NewValidationError("That username is already taken. Try another one!")
		}
		return apperrors.NewValidationError("Username must be 3-30 letters, digits or underscores.")
	case "Password":
		if fe.Tag() == "max" {
			return apperrors.NewValidationError("Password must not exceed 72 characters.")
		}
		return apperrors.NewValidationError("Password must be at least 8 characters.")
	default:
		return apperrors.NewValidationError("Passwords do not match.")
	}
}

// Login checks credentials. Unknown users and wrong passwords are reported
// the same way.
func (s *Service) Login(ctx context.Context, username, password string) error {
	ok, err := s.repo.FindLogin(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		s.metrics.Login(LoginFailure)
		s.logger.Warn("Invalid login attempt", zap.String("username", username))
		return apperrors.NewInvalidCredentialsError()
	}

	s.metrics.Login(LoginSuccess)
	s.logger.Info("User logged in", zap.String("username", username))
	return nil
}

// IssueToken logs the user in and returns a signed API token
func (s *Service) IssueToken(ctx context.Context, username, password string) (*Token, error) {
	if err := s.Login(ctx, username, password); err != nil {
		return nil, err
	}
	return s.tokens.Issue(username)
}

// Authenticate returns the username carried by a valid API token
func (s *Service) Authenticate(token string) (string, error) {
	return s.tokens.Parse(token)
}

// Exists reports whether username has an account
func (s *Service) Exists(ctx context.Context, username string) (bool, error) {
	_, ok, err := s.repo.GetUserID(ctx, username)
	return ok, err
}
