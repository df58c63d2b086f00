// ABOUTME: Typed session values exchanged with the backend auth endpoints
// ABOUTME: Credential, Identity and AuthResult are validated on receipt

package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidIdentity is returned when a backend payload does not describe a complete user.
var ErrInvalidIdentity = errors.New("invalid identity")

// Role is the user's account type.
type Role string

const (
	RoleJobSeeker  Role = "job_seeker"
	RoleEmployer   Role = "employer"
	RoleIndividual Role = "individual"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleJobSeeker, RoleEmployer, RoleIndividual:
		return true
	}
	return false
}

// Credential is an opaque bearer token.
type Credential string

// ExpiresAt peeks at the exp claim when the credential happens to be a JWT.
// The signature is not checked; the result is for display only.
func (c Credential) ExpiresAt() (time.Time, bool) {
	if c == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(string(c), claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Redacted returns a short prefix safe to print.
func (c Credential) Redacted() string {
	if len(c) <= 8 {
		return strings.Repeat("*", len(c))
	}
	return string(c[:8]) + "…"
}

// Identity is the resolved user record.
type Identity struct {
	ID                int64  `json:"id" validate:"required,gt=0"`
	TelegramID        int64  `json:"telegram_id" validate:"required,gt=0"`
	Username          string `json:"username,omitempty"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	PhotoURL          string `json:"photo_url,omitempty"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	LanguageCode      string `json:"language_code,omitempty"`
	IsPremium         bool   `json:"is_premium,omitempty"`
	Role              Role   `json:"role" validate:"required,oneof=job_seeker employer individual"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

// Validate rejects identities missing their numeric ids or carrying an unknown role.
func (i *Identity) Validate() error {
	if i == nil {
		return fmt.Errorf("%w: missing user", ErrInvalidIdentity)
	}
	return validateStruct(i)
}

// DisplayName returns @username when set, otherwise the full name.
func (i *Identity) DisplayName() string {
	if i.Username != "" {
		return "@" + i.Username
	}
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return fmt.Sprintf("user %d", i.ID)
	}
	return name
}

// AuthResult is returned by both credential exchange endpoints.
type AuthResult struct {
	AccessToken Credential `json:"access_token" validate:"required"`
	TokenType   string     `json:"token_type"`
	User        Identity   `json:"user"`
}

// Validate requires a token and a complete user.
func (a *AuthResult) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: empty auth result", ErrInvalidIdentity)
	}
	if err := validateStruct(a); err != nil {
		return err
	}
	if a.TokenType != "" && !strings.EqualFold(a.TokenType, "bearer") {
		return fmt.Errorf("%w: unsupported token type %q", ErrInvalidIdentity, a.TokenType)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use JSON field names for validation error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidIdentity, strings.Join(fields, ", "))
}
