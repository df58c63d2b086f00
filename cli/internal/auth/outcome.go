// ABOUTME: Resolution states and the tagged outcome of session resolution
// ABOUTME: Includes the emergency identity and its read-only policy

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/codersneeded/miniapp/cli/internal/models"
)

// State is the resolver's live position in the resolution sequence.
type State int32

const (
	Idle State = iota
	CheckingExistingCredential
	AttemptingPlatformAuth
	AttemptingLocalFallbackAuth
	Resumed
	Established
	EmergencyFallback
)

var stateNames = [...]string{
	Idle:                        "idle",
	CheckingExistingCredential:  "checking existing credential",
	AttemptingPlatformAuth:      "attempting platform auth",
	AttemptingLocalFallbackAuth: "attempting local fallback auth",
	Resumed:                     "resumed",
	Established:                 "established",
	EmergencyFallback:           "emergency fallback",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// Terminal reports whether s ends a resolution.
func (s State) Terminal() bool {
	return s == Resumed || s == Established || s == EmergencyFallback
}

// Kind tags an Outcome.
type Kind int

const (
	KindUnresolved Kind = iota
	KindResumed
	KindEstablished
	KindEmergencyFallback
)

func (k Kind) String() string {
	switch k {
	case KindResumed:
		return "resumed"
	case KindEstablished:
		return "established"
	case KindEmergencyFallback:
		return "emergency_fallback"
	default:
		return "unresolved"
	}
}

// MarshalText renders the kind in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Strategy names how the credential was obtained.
type Strategy string

const (
	StrategyNone      Strategy = ""
	StrategyExisting  Strategy = "existing"
	StrategyPlatform  Strategy = "platform"
	StrategyFallback  Strategy = "fallback"
	StrategyEmergency Strategy = "emergency"
)

// Outcome is the authoritative result of a resolution. Resolvers hand the
// same pointer to every caller; treat it as read-only.
type Outcome struct {
	Kind       Kind              `json:"kind"`
	Strategy   Strategy          `json:"strategy,omitempty"`
	Identity   models.Identity   `json:"identity"`
	Credential models.Credential `json:"-"`
	ResolvedAt time.Time         `json:"resolved_at,omitempty"`
}

// Authenticated is true for every terminal kind, emergency included.
func (o *Outcome) Authenticated() bool {
	return o != nil && o.Kind != KindUnresolved
}

var (
	// ErrUnresolved is returned by Permits before resolution completes.
	ErrUnresolved = errors.New("session not resolved")
	// ErrReadOnlySession is returned by Permits for writes in an emergency session.
	ErrReadOnlySession = errors.New("emergency session is read-only")
)

// Permits reports whether a request with method may be issued under o.
// Emergency sessions hold no real account, so only safe methods pass.
func (o *Outcome) Permits(method string) error {
	if !o.Authenticated() {
		return ErrUnresolved
	}
	if o.Kind != KindEmergencyFallback {
		return nil
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}
	return fmt.Errorf("%w: %s not allowed", ErrReadOnlySession, method)
}

// EmergencyID is the reserved sentinel id of the emergency identity.
const EmergencyID = 999999

// EmergencyIdentity is the synthetic identity used when every strategy failed.
func EmergencyIdentity() models.Identity {
	return models.Identity{
		ID:         EmergencyID,
		TelegramID: EmergencyID,
		Username:   "fallback_user",
		FirstName:  "Test",
		LastName:   "User",
		Role:       models.RoleIndividual,
	}
}
