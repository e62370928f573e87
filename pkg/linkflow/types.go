package linkflow

import "strings"

// ProtocolRedirectCallback marks an invocation that continues a redirect
// issued by an earlier invocation.
const ProtocolRedirectCallback = "redirect-callback"

// DefaultTokenClaim is the IDToken key the issued token is written to
const DefaultTokenClaim = "https://graph.cool/token"

// Principal is the externally authenticated subject of one invocation
type Principal struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email,omitempty"`
}

// Redirect instructs the host to send the user agent elsewhere
type Redirect struct {
	URL string `json:"url"`
}

// InvocationContext is the per-invocation state exchanged with the host.
type InvocationContext struct {
	// Protocol is ProtocolRedirectCallback on a continuation
	Protocol string
	// Body holds the continuation payload, e.g. "email"
	Body map[string]string
	// Redirect is set when the host must collect the email first
	Redirect *Redirect
	// IDToken receives the issued token under the configured claim
	IDToken map[string]string
}

// IsContinuation reports whether the invocation resumes after a redirect
func (c *InvocationContext) IsContinuation() bool {
	return c != nil && c.Protocol == ProtocolRedirectCallback
}

// State of a reconciliation
type State int

const (
	StateStart State = iota
	StateEntryChecked
	StateLinkFound
	StateNeedEmail
	StateUserLookup
	StateUserCreated
	StateRedirectIssued
	StateTokenIssued
	StateFailed
)

var stateNames = map[State]string{
	StateStart:          "START",
	StateEntryChecked:   "ENTRY_CHECKED",
	StateLinkFound:      "LINK_FOUND",
	StateNeedEmail:      "NEED_EMAIL",
	StateUserLookup:     "USER_LOOKUP",
	StateUserCreated:    "USER_CREATED",
	StateRedirectIssued: "REDIRECT_ISSUED",
	StateTokenIssued:    "TOKEN_ISSUED",
	StateFailed:         "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateRedirectIssued || s == StateTokenIssued || s == StateFailed
}

// Outcome describes how a reconciliation ended
type Outcome struct {
	State  State
	UserID string
	// Trail lists every state visited, starting with StateStart
	Trail []State
}

// TrailString renders the trail as "START>ENTRY_CHECKED>..."
func (o Outcome) TrailString() string {
	names := make([]string, len(o.Trail))
	for i, s := range o.Trail {
		names[i] = s.String()
	}
	return strings.Join(names, ">")
}
