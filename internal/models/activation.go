package models

import "strings"

// UserInfo is the display information returned for a valid activation token
type UserInfo struct {
	FullName   string  `json:"fullName"`
	Email      string  `json:"email"`
	EmployeeID *string `json:"employeeId,omitempty"`
}

// TokenValidationResult is the backend's verdict on an activation token.
// ExpiresAt is informational only and never compared against the clock.
type TokenValidationResult struct {
	IsValid   bool      `json:"isValid"`
	Reason    *string   `json:"reason"`
	User      *UserInfo `json:"user"`
	ExpiresAt *string   `json:"expiresAt"`
}

// ActivationRequest is the input of the activateUserAccount mutation
type ActivationRequest struct {
	Token                 string `json:"token" validate:"required"`
	EmployeeID            string `json:"employeeId" validate:"required,max=64"`
	Password              string `json:"password"`
	PasswordConfirmation  string `json:"passwordConfirmation"`
	PersonalEmail         string `json:"personalEmail" validate:"required,email"`
	DataProcessingConsent bool   `json:"dataProcessingConsent"`
}

// ActivationResult is the outcome of the activateUserAccount mutation
type ActivationResult struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
	UserID  *string `json:"userId"`
	Email   *string `json:"email"`
}

// ActivationForm holds the raw values submitted from the activation form
type ActivationForm struct {
	EmployeeID           string
	Password             string
	PasswordConfirmation string
	PersonalEmail        string
	Consent              bool
}

// Request builds the activation request for token. Identifier and email
// fields are trimmed, password fields are passed through untouched.
func (f ActivationForm) Request(token string) ActivationRequest {
	return ActivationRequest{
		Token:                 token,
		EmployeeID:            strings.TrimSpace(f.EmployeeID),
		Password:              f.Password,
		PasswordConfirmation:  f.PasswordConfirmation,
		PersonalEmail:         strings.TrimSpace(f.PersonalEmail),
		DataProcessingConsent: f.Consent,
	}
}

// PasswordCheckRequest is the body of a live password check
type PasswordCheckRequest struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

// RequirementStatus reports whether one password requirement is met
type RequirementStatus struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Pattern string `json:"pattern"`
	Met     bool   `json:"met"`
}

// MatchIndicator reports the confirmation field state. It is hidden while
// the confirmation is empty.
type MatchIndicator struct {
	Visible bool `json:"visible"`
	Matches bool `json:"matches"`
}

// PasswordCheckResponse is the result of a live password check
type PasswordCheckResponse struct {
	Requirements []RequirementStatus `json:"requirements"`
	MeetsAll     bool                `json:"meetsAll"`
	Match        MatchIndicator      `json:"match"`
}
