package services

import (
	"context"
	"errors"

	"github.com/denzelpenzel/activation/internal/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// User-facing messages
const (
	MsgMissingToken        = "Activation token not found in the URL"
	MsgInvalidToken        = "Invalid or expired token"
	MsgValidationFailed    = "Error validating token: "
	MsgPasswordMismatch    = "Passwords do not match"
	MsgConsentRequired     = "You must accept the data processing terms to continue"
	MsgWeakPassword        = "Password does not meet all security requirements"
	MsgEmployeeIDRequired  = "Employee ID is required"
	MsgPersonalEmail       = "A valid personal email is required"
	MsgActivationFailed    = "Error activating account: "
	MsgActivationRejected  = "Account activation failed"
	MsgSubmissionInFlight  = "An activation request is already in progress"
	MsgSubmissionLockError = "Could not start the activation, please try again"
)

// ErrFlowNotReady is returned when a submission arrives before the token
// was validated or after the flow finished.
var ErrFlowNotReady = errors.New("activation form is not ready")

// ActivationAPI is the backend used by the flow
type ActivationAPI interface {
	ValidateToken(ctx context.Context, token string) (*models.TokenValidationResult, error)
	Activate(ctx context.Context, req models.ActivationRequest) (*models.ActivationResult, error)
}

// FlowService runs token validation and activation submission and maps the
// resulting flow onto page regions.
type FlowService struct {
	api         ActivationAPI
	guard       SubmitGuard
	validate    *validator.Validate
	successPath string
	logger      *zap.Logger
}

// NewFlowService creates a new flow service
func NewFlowService(api ActivationAPI, guard SubmitGuard, successPath string, logger *zap.Logger) *FlowService {
	return &FlowService{
		api:         api,
		guard:       guard,
		validate:    validator.New(),
		successPath: successPath,
		logger:      logger,
	}
}

// SuccessPath is where a successful activation navigates to
func (s *FlowService) SuccessPath() string {
	return s.successPath
}

func (s *FlowService) transition(flow *models.Flow, to models.FlowState) {
	s.logger.Debug("Flow transition",
		zap.String("token_fp", Fingerprint(flow.Token)),
		zap.Stringer("from", flow.State),
		zap.Stringer("to", to))
	flow.State = to
}

func (s *FlowService) failToken(flow *models.Flow, message string) {
	flow.TokenError = message
	flow.User = nil
	s.transition(flow, models.StateTokenError)
}

func (s *FlowService) failSubmit(flow *models.Flow, message string) {
	flow.InlineError = message
	s.transition(flow, models.StateSubmitError)
}

// Start validates token and returns the resulting flow. A missing token
// ends in TokenError without contacting the backend.
func (s *FlowService) Start(ctx context.Context, token string) *models.Flow {
	flow := &models.Flow{State: models.StateIdle, Token: token}
	if !flow.HasToken() {
		s.failToken(flow, MsgMissingToken)
		return flow
	}

	s.transition(flow, models.StateLoading)
	defer func() {
		if flow.State == models.StateLoading {
			s.failToken(flow, MsgInvalidToken)
		}
	}()

	result, err := s.api.ValidateToken(ctx, token)
	switch {
	case err != nil:
		s.failToken(flow, MsgValidationFailed+err.Error())
	case result == nil || !result.IsValid:
		message := MsgInvalidToken
		if result != nil && result.Reason != nil && *result.Reason != "" {
			message = *result.Reason
		}
		s.failToken(flow, message)
	case result.User == nil:
		s.failToken(flow, MsgValidationFailed+"response is missing user information")
	default:
		flow.User = result.User
		flow.ExpiresAt = result.ExpiresAt
		s.transition(flow, models.StateReady)
	}

	return flow
}

// CheckForm runs the local checks in order and returns the request to send
// or the first failure message.
func (s *FlowService) CheckForm(token string, form models.ActivationForm) (models.ActivationRequest, string) {
	req := form.Request(token)

	if req.Password != req.PasswordConfirmation {
		return req, MsgPasswordMismatch
	}

	if !req.DataProcessingConsent {
		return req, MsgConsentRequired
	}

	if !MeetsAllRequirements(req.Password) {
		return req, MsgWeakPassword
	}

	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Field() == "PersonalEmail" {
			return req, MsgPersonalEmail
		}
		return req, MsgEmployeeIDRequired
	}

	return req, ""
}

// Submit runs the local checks and, when they pass, the activation call.
// Every outcome is recorded on flow. Errors are returned only when the flow
// cannot accept a submission at all.
func (s *FlowService) Submit(ctx context.Context, flow *models.Flow, form models.ActivationForm) error {
	switch flow.State {
	case models.StateReady, models.StateSubmitError:
	case models.StateSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrFlowNotReady
	}

	req, problem := s.CheckForm(flow.Token, form)
	if problem != "" {
		s.failSubmit(flow, problem)
		return nil
	}

	release, err := s.guard.Acquire(ctx, Fingerprint(flow.Token))
	if err != nil {
		if errors.Is(err, ErrSubmissionInFlight) {
			s.failSubmit(flow, MsgSubmissionInFlight)
			return nil
		}
		s.logger.Error("Failed to acquire submit lock", zap.Error(err))
		s.failSubmit(flow, MsgSubmissionLockError)
		return nil
	}
	defer release()

	flow.InlineError = ""
	s.transition(flow, models.StateSubmitting)
	defer func() {
		if flow.State == models.StateSubmitting {
			s.failSubmit(flow, MsgActivationRejected)
		}
	}()

	result, err := s.api.Activate(ctx, req)
	switch {
	case err != nil:
		s.failSubmit(flow, MsgActivationFailed+err.Error())
	case result == nil || !result.Success:
		message := MsgActivationRejected
		if result != nil && result.Message != nil && *result.Message != "" {
			message = *result.Message
		}
		s.failSubmit(flow, message)
	default:
		if result.UserID != nil {
			flow.UserID = *result.UserID
		}
		s.transition(flow, models.StateSuccess)
	}

	return nil
}

// Render maps flow onto the visible page regions
func (s *FlowService) Render(flow *models.Flow) models.View {
	return Render(flow, s.successPath)
}

// Render maps flow onto the visible page regions. A token error hides the
// form and the user block regardless of anything else, and Success renders
// nothing but the redirect.
func Render(flow *models.Flow, successPath string) models.View {
	var view models.View

	switch flow.State {
	case models.StateSuccess:
		view.Redirect = successPath
		return view
	case models.StateTokenError:
		view.ShowTokenError = true
		view.TokenError = flow.TokenError
		return view
	}

	view.Loading = flow.State.Busy()
	view.ShowForm = !view.Loading && flow.HasToken() &&
		(flow.State == models.StateReady || flow.State == models.StateSubmitError)

	if flow.User != nil && flow.State != models.StateLoading {
		view.ShowUserInfo = true
		view.FullName = flow.User.FullName
		view.Email = flow.User.Email
		if flow.ExpiresAt != nil {
			view.ExpiresAt = *flow.ExpiresAt
		}
	}

	if flow.State == models.StateSubmitError && flow.InlineError != "" {
		view.ShowInlineError = true
		view.InlineError = flow.InlineError
	}

	return view
}
