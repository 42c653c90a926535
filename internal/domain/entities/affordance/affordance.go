// Package affordance provides domain entities for the optimistic auth
// affordance decision and its render instruction.
package affordance

// DecisionState is the three-state outcome of reading the snapshot cache.
type DecisionState string

const (
	// CachedLoggedIn means a fresh snapshot says the visitor is signed in.
	CachedLoggedIn DecisionState = "cached_logged_in"
	// Unknown means no usable snapshot exists; render a neutral control.
	Unknown DecisionState = "unknown"
	// CachedLoggedOut means a fresh snapshot says the visitor is signed out.
	CachedLoggedOut DecisionState = "cached_logged_out"
)

// InstructionKind names the control the host page should paint.
type InstructionKind string

const (
	KindAvatar  InstructionKind = "avatar"  // signed-in avatar linking to the account area
	KindAction  InstructionKind = "action"  // actionable sign-in / sign-up control
	KindLoading InstructionKind = "loading" // disabled, loading-styled control
)

// Action is the deferred auth action bound to an actionable control.
type Action string

const (
	ActionSignIn Action = "signin"
	ActionSignUp Action = "signup"
)

// RenderInstruction is the structured description of the control to paint.
// The template layer turns it into markup; JSON consumers render it
// themselves.
type RenderInstruction struct {
	Kind     InstructionKind `json:"kind"`
	State    DecisionState   `json:"state"`
	Label    string          `json:"label,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Href     string          `json:"href,omitempty"`
	Action   Action          `json:"action,omitempty"`
}
