// Package linkflow reconciles an externally authenticated identity with an
// internal user and issues a token for that user.
//
// One invocation runs as a sequential state machine:
//
//	START -> ENTRY_CHECKED
//	ENTRY_CHECKED -> LINK_FOUND | NEED_EMAIL | USER_LOOKUP
//	NEED_EMAIL -> REDIRECT_ISSUED
//	USER_LOOKUP -> LINK_FOUND | USER_CREATED -> LINK_FOUND
//	LINK_FOUND -> TOKEN_ISSUED
//	any -> FAILED
//
// Each backend call is awaited before the next transition is chosen. A
// Reconciler only holds its configuration and collaborators, so one instance
// serves concurrent invocations.
//
// # Usage
//
//	reconciler := linkflow.NewReconciler(linkflow.Config{
//		RedirectURL: "https://app.example.com/collect-email",
//	}, repository, issuer, emailvalidator.New())
//
//	reconciler.Execute(ctx, principal, ictx, func(err error, p *linkflow.Principal, c *linkflow.InvocationContext) {
//		switch {
//		case err != nil:
//			// authentication failed
//		case c.Redirect != nil:
//			// send the user agent to c.Redirect.URL, then call again with
//			// Protocol = linkflow.ProtocolRedirectCallback
//		default:
//			// c.IDToken holds the token
//		}
//	})
//
// # Duplicate creation
//
// Lookups by external id and by email happen before any create. When the
// backend rejects a create as a duplicate (errors.ErrCodeAlreadyExists) the
// reconciler re-reads the stored record and continues with it. Backends that
// do not enforce uniqueness may still end up with duplicate users when two
// first logins of the same identity interleave.
package linkflow
