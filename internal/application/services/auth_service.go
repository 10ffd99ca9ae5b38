package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/infrastructure/config"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
	"github.com/hivekeeper/core/internal/ports"
)

// Claims represents the local session token claims
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService is the mock authentication module: a local-only pass-through
// that accepts any well-formed credentials, stores a bcrypt hash of the
// passcode for the re-lock check, and keeps a signed session token in its own
// storage key. It never talks to a backend.
type AuthService struct {
	sessions ports.SessionRepository
	jwtCfg   config.JWTConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(sessions ports.SessionRepository, jwtCfg config.JWTConfig, appLogger *logger.Logger) *AuthService {
	return &AuthService{
		sessions: sessions,
		jwtCfg:   jwtCfg,
		logger:   appLogger,
		now:      time.Now,
	}
}

// SignIn creates a local session. Credentials are not verified against
// anything; the passcode hash is kept so the app can re-lock locally.
func (s *AuthService) SignIn(ctx context.Context, req ports.SignInRequest) (*ports.SignInResponse, error) {
	passcodeHash, err := bcrypt.GenerateFromPassword([]byte(req.Passcode), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash passcode: %w", err)
	}

	token, err := s.generateToken(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &entities.Session{
		Email:        req.Email,
		Token:        token,
		PasscodeHash: string(passcodeHash),
		CreatedAt:    s.now(),
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("Local session created", "email", req.Email)

	return &ports.SignInResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwtCfg.ExpiresIn.Seconds()),
		Email:     req.Email,
	}, nil
}

// SignOut clears the stored session.
func (s *AuthService) SignOut(ctx context.Context) error {
	if err := s.sessions.ClearSession(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.logger.Info("Local session cleared")
	return nil
}

// CurrentSession returns the stored session if its token still validates.
// An expired token is treated the same as no session.
func (s *AuthService) CurrentSession(ctx context.Context) (*entities.Session, error) {
	session, err := s.sessions.LoadSession(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.ValidateToken(session.Token); err != nil {
		s.logger.Warn("Stored session token invalid", "error", err)
		return nil, entities.ErrSessionNotFound
	}
	return session, nil
}

// VerifyPasscode compares the given passcode against the stored hash.
func (s *AuthService) VerifyPasscode(ctx context.Context, passcode string) error {
	session, err := s.sessions.LoadSession(ctx)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(session.PasscodeHash), []byte(passcode)); err != nil {
		return fmt.Errorf("passcode mismatch: %w", err)
	}
	return nil
}

// ValidateToken validates a session token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &ports.Claims{Email: claims.Email}, nil
}

func (s *AuthService) generateToken(email string) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtCfg.Issuer,
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
