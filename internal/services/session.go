package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/denzelpenzel/activation/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const flowIssuer = "activation-portal"

// ErrInvalidSession is returned for a missing, tampered or expired flow session
var ErrInvalidSession = errors.New("invalid or expired activation session")

// FlowClaims carries a validated flow from the page render to the form submit
type FlowClaims struct {
	ActivationToken string  `json:"tok"`
	FullName        string  `json:"name"`
	Email           string  `json:"email"`
	TokenExpiresAt  *string `json:"token_expires_at,omitempty"`
	jwt.RegisteredClaims
}

// SessionService signs and verifies flow sessions
type SessionService struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(secret string, ttl time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Issue signs the validated part of flow. Only flows that passed token
// validation can be issued.
func (s *SessionService) Issue(flow *models.Flow) (string, error) {
	if flow.User == nil || !flow.HasToken() {
		return "", fmt.Errorf("flow has no validated token")
	}

	now := s.now()
	claims := &FlowClaims{
		ActivationToken: flow.Token,
		FullName:        flow.User.FullName,
		Email:           flow.User.Email,
		TokenExpiresAt:  flow.ExpiresAt,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    flowIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign flow session", zap.Error(err))
		return "", fmt.Errorf("failed to sign flow session: %w", err)
	}

	return signed, nil
}

// Restore verifies session and rebuilds the flow in the Ready state
func (s *SessionService) Restore(session string) (*models.Flow, error) {
	if session == "" {
		return nil, ErrInvalidSession
	}

	token, err := jwt.ParseWithClaims(session, &FlowClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(flowIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.Warn("Invalid flow session", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*FlowClaims)
	if !ok || !token.Valid || claims.ActivationToken == "" {
		return nil, ErrInvalidSession
	}

	return &models.Flow{
		State: models.StateReady,
		Token: claims.ActivationToken,
		User: &models.UserInfo{
			FullName: claims.FullName,
			Email:    claims.Email,
		},
		ExpiresAt: claims.TokenExpiresAt,
	}, nil
}
