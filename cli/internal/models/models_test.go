// ABOUTME: Tests for session value types
// ABOUTME: Covers identity validation, display names and credential expiry peeking

package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func validIdentity() Identity {
	return Identity{ID: 7, TelegramID: 123456, Username: "jane", Role: RoleEmployer}
}

func TestIdentity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Identity)
		wantErr bool
	}{
		{"complete", func(*Identity) {}, false},
		{"missing id", func(i *Identity) { i.ID = 0 }, true},
		{"missing telegram id", func(i *Identity) { i.TelegramID = 0 }, true},
		{"negative id", func(i *Identity) { i.ID = -1 }, true},
		{"missing role", func(i *Identity) { i.Role = "" }, true},
		{"unknown role", func(i *Identity) { i.Role = "admin" }, true},
		{"individual role", func(i *Identity) { i.Role = RoleIndividual }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := validIdentity()
			tt.mutate(&id)
			err := id.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidIdentity) {
				t.Errorf("error %v should wrap ErrInvalidIdentity", err)
			}
		})
	}
}

func TestIdentity_ValidateNil(t *testing.T) {
	var id *Identity
	if err := id.Validate(); !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("Validate() on nil = %v, want ErrInvalidIdentity", err)
	}
}

func TestAuthResult_DecodeAndValidate(t *testing.T) {
	payload := `{
		"access_token": "tok",
		"token_type": "bearer",
		"user": {"id": 1, "telegram_id": 99, "username": null, "first_name": "Ann", "role": "job_seeker", "created_at": "2024-05-01T10:00:00"}
	}`

	var res AuthResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := res.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if res.User.DisplayName() != "Ann" {
		t.Errorf("DisplayName() = %q, want Ann", res.User.DisplayName())
	}
}

func TestAuthResult_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		res  AuthResult
	}{
		{"missing token", AuthResult{TokenType: "bearer", User: validIdentity()}},
		{"missing user", AuthResult{AccessToken: "tok", TokenType: "bearer"}},
		{"wrong token type", AuthResult{AccessToken: "tok", TokenType: "mac", User: validIdentity()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.res.Validate(); !errors.Is(err, ErrInvalidIdentity) {
				t.Errorf("Validate() = %v, want ErrInvalidIdentity", err)
			}
		})
	}
}

func TestIdentity_DisplayName(t *testing.T) {
	tests := []struct {
		id   Identity
		want string
	}{
		{Identity{ID: 1, Username: "jane", FirstName: "Jane"}, "@jane"},
		{Identity{ID: 1, FirstName: "Jane", LastName: "Doe"}, "Jane Doe"},
		{Identity{ID: 1, FirstName: "Jane"}, "Jane"},
		{Identity{ID: 42}, "user 42"},
	}

	for _, tt := range tests {
		if got := tt.id.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestCredential_ExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, ok := Credential(signed).ExpiresAt()
	if !ok {
		t.Fatal("ExpiresAt() should find the exp claim")
	}
	if !got.Equal(exp) {
		t.Errorf("ExpiresAt() = %v, want %v", got, exp)
	}
}

func TestCredential_ExpiresAtOpaque(t *testing.T) {
	for _, c := range []Credential{"", "opaque-session-token", "a.b.c"} {
		if _, ok := c.ExpiresAt(); ok {
			t.Errorf("ExpiresAt(%q) should report no expiry", c)
		}
	}
}

func TestCredential_Redacted(t *testing.T) {
	if got := Credential("abc").Redacted(); got != "***" {
		t.Errorf("Redacted(short) = %q", got)
	}
	if got := Credential("eyJhbGciOiJIUzI1NiJ9.payload").Redacted(); got != "eyJhbGci…" {
		t.Errorf("Redacted(long) = %q", got)
	}
}
