package linkflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-linkrule/pkg/emailvalidator"
)

// Backend is the store of internal users and external identity links.
// Lookups report a missing record with an errors.ErrCodeNotFound error and
// creates may report a duplicate with errors.ErrCodeAlreadyExists.
type Backend interface {
	FindLinkByExternalID(ctx context.Context, externalID string) (string, error)
	FindUserByEmail(ctx context.Context, email string) (string, error)
	CreateUser(ctx context.Context, email string) (string, error)
	CreateLink(ctx context.Context, externalID, userID string) error
}

// TokenIssuer mints a token scoped to one internal user
type TokenIssuer interface {
	IssueToken(ctx context.Context, userID string) (string, error)
}

// EmailValidator checks email syntax
type EmailValidator interface {
	IsValidEmail(email string) bool
}

// Callback is the host contract: a non-nil err aborts authentication, a
// redirect on ictx asks the host to redirect and re-invoke, otherwise
// ictx.IDToken carries the token.
type Callback func(err error, principal *Principal, ictx *InvocationContext)

// Config is injected once at construction
type Config struct {
	// RedirectURL is where users without an email are sent
	RedirectURL string
	// TokenClaim is the IDToken key for the issued token
	TokenClaim string
}

// Reconciler runs the link flow
type Reconciler struct {
	config    Config
	backend   Backend
	issuer    TokenIssuer
	validator EmailValidator
}

// NewReconciler creates a Reconciler. A nil validator falls back to
// emailvalidator.New().
func NewReconciler(config Config, backend Backend, issuer TokenIssuer, validator EmailValidator) *Reconciler {
	if config.TokenClaim == "" {
		config.TokenClaim = DefaultTokenClaim
	}
	if validator == nil {
		validator = emailvalidator.New()
	}
	return &Reconciler{
		config:    config,
		backend:   backend,
		issuer:    issuer,
		validator: validator,
	}
}

// run carries the state of one invocation between transitions
type run struct {
	principal *Principal
	ictx      *InvocationContext
	userID    string
}

// Execute reconciles and reports the result to cb exactly once
func (r *Reconciler) Execute(ctx context.Context, principal *Principal, ictx *InvocationContext, cb Callback) {
	if ictx == nil {
		ictx = &InvocationContext{}
	}
	_, err := r.Reconcile(ctx, principal, ictx)
	cb(err, principal, ictx)
}

// Reconcile drives the state machine to a terminal state. It returns the
// outcome together with the error that moved it to StateFailed, if any.
func (r *Reconciler) Reconcile(ctx context.Context, principal *Principal, ictx *InvocationContext) (Outcome, error) {
	outcome := Outcome{State: StateStart, Trail: []State{StateStart}}

	if principal == nil || principal.ExternalID == "" {
		return r.fail(outcome, nil, validationError(msgMissingExternalID))
	}
	if ictx == nil {
		ictx = &InvocationContext{}
	}

	rn := &run{principal: principal, ictx: ictx}
	state := StateStart
	for !state.Terminal() {
		next, err := r.step(ctx, state, rn)
		if err != nil {
			outcome.State = state
			return r.fail(outcome, rn, err)
		}
		slog.Debug("Link flow transition", "from", state, "to", next, "external_id", principal.ExternalID)
		state = next
		outcome.Trail = append(outcome.Trail, state)
	}

	outcome.State = state
	outcome.UserID = rn.userID
	switch state {
	case StateRedirectIssued:
		slog.Info("Email required, redirect issued", "external_id", principal.ExternalID, "redirect_url", ictx.Redirect.URL)
	case StateTokenIssued:
		slog.Info("Token issued", "external_id", principal.ExternalID, "user_id", rn.userID)
	}
	return outcome, nil
}

func (r *Reconciler) fail(outcome Outcome, rn *run, err error) (Outcome, error) {
	from := outcome.State
	outcome.State = StateFailed
	outcome.Trail = append(outcome.Trail, StateFailed)
	externalID := ""
	if rn != nil {
		externalID = rn.principal.ExternalID
		outcome.UserID = rn.userID
	}
	slog.Error("Link flow failed", "state", from, "external_id", externalID, "error", err)
	return outcome, err
}

// step performs the work of one state and returns the next state
func (r *Reconciler) step(ctx context.Context, state State, rn *run) (State, error) {
	switch state {
	case StateStart:
		if err := r.checkEntry(rn); err != nil {
			return state, err
		}
		return StateEntryChecked, nil
	case StateEntryChecked:
		found, err := r.resolveIdentity(ctx, rn)
		if err != nil {
			return state, err
		}
		if found {
			return StateLinkFound, nil
		}
		if rn.principal.Email == "" {
			return StateNeedEmail, nil
		}
		return StateUserLookup, nil
	case StateNeedEmail:
		if r.config.RedirectURL == "" {
			return state, backendError(nil, "redirect url is not configured")
		}
		rn.ictx.Redirect = &Redirect{URL: r.config.RedirectURL}
		return StateRedirectIssued, nil
	case StateUserLookup:
		created, err := r.resolveUser(ctx, rn)
		if err != nil {
			return state, err
		}
		if created {
			return StateUserCreated, nil
		}
		return StateLinkFound, nil
	case StateUserCreated:
		if err := r.link(ctx, rn); err != nil {
			return state, err
		}
		return StateLinkFound, nil
	case StateLinkFound:
		if err := r.issueToken(ctx, rn); err != nil {
			return state, err
		}
		return StateTokenIssued, nil
	default:
		return state, fmt.Errorf("no transition from state %s", state)
	}
}

// checkEntry takes the email from a redirect continuation. Nothing is
// modified when the email is rejected.
func (r *Reconciler) checkEntry(rn *run) error {
	if !rn.ictx.IsContinuation() {
		return nil
	}
	email := rn.ictx.Body["email"]
	if !r.validator.IsValidEmail(email) {
		return validationError(msgInvalidEmail)
	}
	rn.principal.Email = email
	return nil
}

// resolveIdentity looks up an existing link for the external identity
func (r *Reconciler) resolveIdentity(ctx context.Context, rn *run) (bool, error) {
	userID, err := r.backend.FindLinkByExternalID(ctx, rn.principal.ExternalID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, backendError(err, "failed to look up external identity")
	}
	if userID == "" {
		return false, backendError(nil, "external identity lookup returned no user id")
	}
	rn.userID = userID
	return true, nil
}

// resolveUser finds the user by email and links it. When there is no such
// user it creates one and reports created=true, leaving the link to the
// USER_CREATED state.
func (r *Reconciler) resolveUser(ctx context.Context, rn *run) (bool, error) {
	email := rn.principal.Email

	userID, err := r.findUser(ctx, email)
	if err != nil {
		return false, err
	}
	if userID != "" {
		rn.userID = userID
		return false, r.link(ctx, rn)
	}

	userID, err = r.backend.CreateUser(ctx, email)
	switch {
	case err == nil:
		if userID == "" {
			return false, backendError(nil, "user creation returned no user id")
		}
		slog.Info("User created", "user_id", userID, "external_id", rn.principal.ExternalID)
		rn.userID = userID
		return true, nil
	case isAlreadyExists(err):
		// created concurrently or by an earlier attempt whose response was lost
		slog.Info("User already exists, re-reading", "external_id", rn.principal.ExternalID)
		userID, err = r.findUser(ctx, email)
		if err != nil {
			return false, err
		}
		if userID == "" {
			return false, backendError(nil, "user reported as existing but not found")
		}
		rn.userID = userID
		return false, r.link(ctx, rn)
	default:
		return false, backendError(err, "failed to create user")
	}
}

// findUser returns "" when no user has the email
func (r *Reconciler) findUser(ctx context.Context, email string) (string, error) {
	userID, err := r.backend.FindUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", backendError(err, "failed to look up user by email")
	}
	return userID, nil
}

// link attaches the external identity to rn.userID. A duplicate link means
// the identity was linked in the meantime; the stored link wins.
func (r *Reconciler) link(ctx context.Context, rn *run) error {
	err := r.backend.CreateLink(ctx, rn.principal.ExternalID, rn.userID)
	if err == nil {
		slog.Info("External identity linked", "external_id", rn.principal.ExternalID, "user_id", rn.userID)
		return nil
	}
	if !isAlreadyExists(err) {
		return backendError(err, "failed to link external identity")
	}

	found, err := r.resolveIdentity(ctx, rn)
	if err != nil {
		return err
	}
	if !found {
		return backendError(nil, "external identity reported as linked but not found")
	}
	slog.Info("External identity already linked, using stored link", "external_id", rn.principal.ExternalID, "user_id", rn.userID)
	return nil
}

// issueToken writes a fresh token for rn.userID into the context
func (r *Reconciler) issueToken(ctx context.Context, rn *run) error {
	token, err := r.issuer.IssueToken(ctx, rn.userID)
	if err != nil {
		return backendError(err, "failed to issue token")
	}
	if token == "" {
		return backendError(nil, "token issuer returned an empty token")
	}
	if rn.ictx.IDToken == nil {
		rn.ictx.IDToken = make(map[string]string)
	}
	rn.ictx.IDToken[r.config.TokenClaim] = token
	return nil
}
