package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mobiremote/internal/logger"
	"mobiremote/internal/models"
	"mobiremote/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = time.Hour
	minPasswordLength = 8
	tokenIssuer       = "mobiremote"
)

var (
	ErrBadCredentials = errors.New("unknown operator or wrong password")
	ErrOperatorExists = errors.New("operator already exists")
	ErrWeakPassword   = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrInvalidRole    = errors.New("role must be admin or operator")
	ErrForbidden      = errors.New("admin role required")
	ErrInvalidToken   = errors.New("invalid token")
)

// OperatorService manages API accounts and their access tokens. The first
// account registered on a fresh controller becomes admin; after that only an
// admin may register further accounts.
type OperatorService struct {
	repo       repository.OperatorRepo
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
	log        *logger.Logger
}

func NewOperatorService(repo repository.OperatorRepo, signingKey string, tokenTTL time.Duration, log *logger.Logger) *OperatorService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &OperatorService{
		repo:       repo,
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		now:        time.Now,
		log:        log.Named("operators"),
	}
}

// accessClaims travel in every bearer token.
type accessClaims struct {
	jwt.RegisteredClaims
	OperatorID int         `json:"oid"`
	Role       models.Role `json:"role"`
}

// Register creates an account on behalf of by. role is ignored for the very
// first account, which is always admin.
func (s *OperatorService) Register(ctx context.Context, by models.Identity, username, password string, role models.Role) (models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Operator{}, errors.New("username is empty")
	}
	if len(password) < minPasswordLength {
		return models.Operator{}, ErrWeakPassword
	}

	n, err := s.repo.Count(ctx)
	if err != nil {
		return models.Operator{}, err
	}
	switch {
	case n == 0:
		role = models.RoleAdmin
	case by.Role != models.RoleAdmin:
		return models.Operator{}, ErrForbidden
	case role == "":
		role = models.RoleOperator
	case !role.Valid():
		return models.Operator{}, ErrInvalidRole
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return models.Operator{}, ErrOperatorExists
	} else if !errors.Is(err, repository.ErrOperatorNotFound) {
		return models.Operator{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Operator{}, fmt.Errorf("hash password: %w", err)
	}
	op := models.Operator{Username: username, Role: role, PasswordHash: string(hash)}
	if op.ID, err = s.repo.Create(ctx, op); err != nil {
		return models.Operator{}, err
	}
	s.log.Infow("operator_registered", "username", username, "role", role, "by", by.OperatorID)
	return op, nil
}

// SignIn checks the password and issues a token carrying the account's role.
func (s *OperatorService) SignIn(ctx context.Context, username, password string) (string, error) {
	op, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrOperatorNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		return "", ErrBadCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   op.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		OperatorID: op.ID,
		Role:       op.Role,
	})
	return token.SignedString(s.signingKey)
}

// Verify returns the identity in an access token.
func (s *OperatorService) Verify(accessToken string) (models.Identity, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(*jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.OperatorID == 0 || !claims.Role.Valid() {
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{OperatorID: claims.OperatorID, Role: claims.Role}, nil
}
