package services

import (
	"context"
	"time"

	"github.com/denzelpenzel/activation/internal/graphql"
	"github.com/denzelpenzel/activation/internal/models"
	"go.uber.org/zap"
)

const validateTokenQuery = `query ValidateActivationToken($input: ValidateActivationTokenInput!) {
  validateActivationToken(input: $input) {
    isValid
    reason
    user {
      fullName
      email
      employeeId
    }
    expiresAt
  }
}`

const activateAccountMutation = `mutation ActivateUserAccount($input: ActivateUserAccountInput!) {
  activateUserAccount(input: $input) {
    success
    message
    userId
    email
  }
}`

// GraphQLDoer executes a GraphQL operation and decodes one response field
type GraphQLDoer interface {
	Do(ctx context.Context, req graphql.Request, field string, dest interface{}) error
}

// ActivationService talks to the backend activation API
type ActivationService struct {
	client  GraphQLDoer
	timeout time.Duration
	logger  *zap.Logger
}

// NewActivationService creates a new activation service. Every call is
// bounded by timeout.
func NewActivationService(client GraphQLDoer, timeout time.Duration, logger *zap.Logger) *ActivationService {
	return &ActivationService{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// ValidateToken asks the backend whether token can be used for activation
func (s *ActivationService) ValidateToken(ctx context.Context, token string) (*models.TokenValidationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := graphql.Request{
		Query:         validateTokenQuery,
		OperationName: "ValidateActivationToken",
		Variables: map[string]interface{}{
			"input": map[string]interface{}{"token": token},
		},
	}

	result := &models.TokenValidationResult{}
	if err := s.client.Do(ctx, req, "validateActivationToken", result); err != nil {
		s.logger.Warn("Token validation call failed",
			zap.String("token_fp", Fingerprint(token)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Token validated",
		zap.String("token_fp", Fingerprint(token)),
		zap.Bool("valid", result.IsValid))

	return result, nil
}

// Activate submits the activation request
func (s *ActivationService) Activate(ctx context.Context, req models.ActivationRequest) (*models.ActivationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	gqlReq := graphql.Request{
		Query:         activateAccountMutation,
		OperationName: "ActivateUserAccount",
		Variables: map[string]interface{}{
			"input": req,
		},
	}

	result := &models.ActivationResult{}
	if err := s.client.Do(ctx, gqlReq, "activateUserAccount", result); err != nil {
		s.logger.Warn("Activation call failed",
			zap.String("token_fp", Fingerprint(req.Token)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Activation completed",
		zap.String("token_fp", Fingerprint(req.Token)),
		zap.Bool("success", result.Success))

	return result, nil
}
