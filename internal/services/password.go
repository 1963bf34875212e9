package services

import (
	"regexp"

	"github.com/denzelpenzel/activation/internal/models"
)

// PasswordRequirement is one named predicate of the password policy
type PasswordRequirement struct {
	Name    string
	Label   string
	pattern *regexp.Regexp
}

// Met reports whether password satisfies the requirement
func (r PasswordRequirement) Met(password string) bool {
	return r.pattern.MatchString(password)
}

// PasswordRequirements is the full policy. A password is eligible for
// submission only when every requirement is met.
var PasswordRequirements = []PasswordRequirement{
	{Name: "length", Label: "At least 8 characters", pattern: regexp.MustCompile(`^.{8,}$`)},
	{Name: "upper", Label: "One uppercase letter", pattern: regexp.MustCompile(`[A-Z]`)},
	{Name: "lower", Label: "One lowercase letter", pattern: regexp.MustCompile(`[a-z]`)},
	{Name: "number", Label: "One number", pattern: regexp.MustCompile(`\d`)},
	{Name: "special", Label: `One special character (!@#$%^&*(),.?":{}|<>)`, pattern: regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)},
}

// EvaluatePassword evaluates every requirement against password
func EvaluatePassword(password string) []models.RequirementStatus {
	statuses := make([]models.RequirementStatus, 0, len(PasswordRequirements))
	for _, req := range PasswordRequirements {
		statuses = append(statuses, models.RequirementStatus{
			Name:    req.Name,
			Label:   req.Label,
			Pattern: req.pattern.String(),
			Met:     req.Met(password),
		})
	}
	return statuses
}

// MeetsAllRequirements is the conjunction of every requirement
func MeetsAllRequirements(password string) bool {
	for _, req := range PasswordRequirements {
		if !req.Met(password) {
			return false
		}
	}
	return true
}

// CheckMatch compares the confirmation with the password. The indicator is
// hidden while confirmation is empty.
func CheckMatch(password, confirmation string) models.MatchIndicator {
	if confirmation == "" {
		return models.MatchIndicator{}
	}
	return models.MatchIndicator{
		Visible: true,
		Matches: confirmation == password,
	}
}

// CheckPassword builds the live indicator state for a password pair
func CheckPassword(req models.PasswordCheckRequest) models.PasswordCheckResponse {
	return models.PasswordCheckResponse{
		Requirements: EvaluatePassword(req.Password),
		MeetsAll:     MeetsAllRequirements(req.Password),
		Match:        CheckMatch(req.Password, req.PasswordConfirmation),
	}
}
