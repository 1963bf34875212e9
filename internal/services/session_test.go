package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/denzelpenzel/activation/internal/models"
	"go.uber.org/zap"
)

func TestSessionRoundTrip(t *testing.T) {
	service := NewSessionService("test-secret", time.Minute, zap.NewNop())

	flow := &models.Flow{
		State:     models.StateReady,
		Token:     "tok-123",
		User:      &models.UserInfo{FullName: "Ana", Email: "ana@corp.example"},
		ExpiresAt: strPtr("2026-10-20T10:00:00Z"),
	}

	session, err := service.Issue(flow)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	restored, err := service.Restore(session)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if restored.State != models.StateReady {
		t.Errorf("Expected ready state, got %s", restored.State)
	}
	if restored.Token != "tok-123" {
		t.Errorf("Expected token tok-123, got %q", restored.Token)
	}
	if restored.User == nil || restored.User.FullName != "Ana" || restored.User.Email != "ana@corp.example" {
		t.Errorf("Unexpected user %+v", restored.User)
	}
	if restored.ExpiresAt == nil || *restored.ExpiresAt != "2026-10-20T10:00:00Z" {
		t.Errorf("Expected expiresAt passthrough, got %v", restored.ExpiresAt)
	}
}

func TestSessionIssueRequiresValidatedFlow(t *testing.T) {
	service := NewSessionService("test-secret", time.Minute, zap.NewNop())

	if _, err := service.Issue(&models.Flow{Token: "tok"}); err == nil {
		t.Error("Expected error for flow without user")
	}
	if _, err := service.Issue(&models.Flow{User: &models.UserInfo{}}); err == nil {
		t.Error("Expected error for flow without token")
	}
}

func TestSessionRestoreRejects(t *testing.T) {
	service := NewSessionService("test-secret", time.Minute, zap.NewNop())
	other := NewSessionService("other-secret", time.Minute, zap.NewNop())

	flow := &models.Flow{Token: "tok", User: &models.UserInfo{FullName: "Ana"}}

	foreign, err := other.Issue(flow)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	valid, err := service.Issue(flow)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	expiring := NewSessionService("test-secret", time.Minute, zap.NewNop())
	issuedAt := time.Now().Add(-time.Hour)
	expiring.now = func() time.Time { return issuedAt }
	expired, err := expiring.Issue(flow)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"foreign secret": foreign,
		"tampered":       tampered,
		"expired":        expired,
	}

	for name, session := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := service.Restore(session); !errors.Is(err, ErrInvalidSession) {
				t.Errorf("Expected ErrInvalidSession, got %v", err)
			}
		})
	}
}
