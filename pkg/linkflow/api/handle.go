package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	idmerrors "github.com/tendant/simple-linkrule/pkg/errors"
	"github.com/tendant/simple-linkrule/pkg/linkflow"
)

// Handler exposes the reconciler to an authentication host over HTTP
type Handler struct {
	reconciler *linkflow.Reconciler
}

// NewHandler creates a new link flow API handler
func NewHandler(reconciler *linkflow.Reconciler) *Handler {
	return &Handler{
		reconciler: reconciler,
	}
}

// RegisterRoutes mounts the handler on r
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/authenticate", h.Authenticate)
	r.Post("/continue", h.Continue)
}

// Authenticate handles POST /authenticate
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid_request", ErrorDescription: "Invalid request body"})
		return
	}

	principal := &linkflow.Principal{ExternalID: req.ExternalID, Email: req.Email}
	h.reconciler.Execute(r.Context(), principal, &linkflow.InvocationContext{}, h.respond(w, r))
}

// Continue handles POST /continue, the form post that follows a redirect
func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("Failed to parse form", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "invalid_request", ErrorDescription: "Invalid form body"})
		return
	}

	body := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		body[key] = r.PostForm.Get(key)
	}

	principal := &linkflow.Principal{ExternalID: r.PostForm.Get("external_id")}
	ictx := &linkflow.InvocationContext{
		Protocol: linkflow.ProtocolRedirectCallback,
		Body:     body,
	}
	h.reconciler.Execute(r.Context(), principal, ictx, h.respond(w, r))
}

// respond translates the callback contract into an HTTP response
func (h *Handler) respond(w http.ResponseWriter, r *http.Request) linkflow.Callback {
	return func(err error, principal *linkflow.Principal, ictx *linkflow.InvocationContext) {
		if err != nil {
			writeError(w, r, err)
			return
		}

		var user UserResponse
		if err := copier.Copy(&user, principal); err != nil {
			slog.Error("Failed to copy principal", "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "server_error"})
			return
		}

		if ictx.Redirect != nil {
			w.Header().Set("Location", ictx.Redirect.URL)
			render.Status(r, http.StatusFound)
			render.JSON(w, r, RedirectResponse{User: user, RedirectURL: ictx.Redirect.URL})
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, TokenResponse{User: user, IDToken: ictx.IDToken})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var e *idmerrors.Error
	if errors.As(err, &e) {
		status = e.HTTPStatusCode()
	}

	resp := ErrorResponse{Error: "server_error"}
	switch idmerrors.GetCode(err) {
	case idmerrors.ErrCodeValidationFailed:
		resp = ErrorResponse{Error: "validation_failed", ErrorDescription: e.Message}
	case idmerrors.ErrCodeBackend:
		slog.Error("Link flow backend failure", "error", err)
		resp = ErrorResponse{Error: "backend_error", ErrorDescription: "Authentication backend failed"}
	default:
		slog.Error("Link flow failed", "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
