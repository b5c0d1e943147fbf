package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"studio/internal/domain"
	"studio/internal/gateway"
	"studio/internal/prompts"
	"studio/internal/session"
)

// App carries the dependencies shared by all handlers.
type App struct {
	Sessions       *session.Registry
	Prompts        *prompts.Catalog
	Validate       *validator.Validate
	Model          string
	MaxUploadBytes int64
	BodyLimit      int64
}

// NewApp wires the handler container. maxUploadBytes caps the decoded image
// size; bodyLimit caps the raw JSON body.
func NewApp(sessions *session.Registry, catalog *prompts.Catalog, model string, maxUploadBytes, bodyLimit int64) *App {
	if catalog == nil {
		catalog = prompts.Default()
	}
	return &App{
		Sessions:       sessions,
		Prompts:        catalog,
		Validate:       validator.New(validator.WithRequiredStructEnabled()),
		Model:          model,
		MaxUploadBytes: maxUploadBytes,
		BodyLimit:      bodyLimit,
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error   errorBody        `json:"error"`
	Session *sessionResponse `json:"session,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorResponse{Error: errorBody{Code: errCode, Message: message}})
}

// decode reads a size-limited JSON body into dst and validates it.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := r.Body
	if a.BodyLimit > 0 {
		body = http.MaxBytesReader(w, r.Body, a.BodyLimit)
	}
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return false
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	if err := a.Validate.Struct(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid field " + fe.Field() + " (" + fe.Tag() + ")"
	}
	return "invalid payload"
}

// sessionError maps session and gateway failures onto HTTP responses. snap is
// attached for failed edits so clients can render the error state directly.
func (a *App) sessionError(w http.ResponseWriter, err error, snap *session.Snapshot) {
	var resp errorResponse
	if snap != nil && snap.ID != "" {
		s := toSessionResponse(*snap)
		resp.Session = &s
	}
	code := http.StatusInternalServerError
	resp.Error = errorBody{Code: "internal", Message: err.Error()}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		code, resp.Error.Code, resp.Error.Message = http.StatusNotFound, "not_found", "session not found"
	case errors.Is(err, domain.ErrEmptyPrompt):
		code, resp.Error.Code = http.StatusBadRequest, "empty_prompt"
	case errors.Is(err, domain.ErrInvalidImage):
		code, resp.Error.Code = http.StatusUnprocessableEntity, "invalid_image"
	case errors.Is(err, domain.ErrHistoryIndex):
		code, resp.Error.Code = http.StatusUnprocessableEntity, "invalid_history_index"
	case errors.Is(err, domain.ErrBusy):
		code, resp.Error.Code = http.StatusConflict, "busy"
	case errors.Is(err, domain.ErrNoImage):
		code, resp.Error.Code = http.StatusConflict, "no_image"
	case errors.Is(err, domain.ErrStaleSession):
		code, resp.Error.Code = http.StatusConflict, "stale_session"
	case errors.Is(err, domain.ErrSessionClosed):
		code, resp.Error.Code = http.StatusGone, "session_closed"
	default:
		switch gateway.KindOf(err) {
		case gateway.KindRefusal:
			code, resp.Error.Code = http.StatusUnprocessableEntity, "model_refusal"
		case gateway.KindUnauthorized:
			code, resp.Error.Code = http.StatusBadGateway, "upstream_unauthorized"
		case gateway.KindTransport, gateway.KindInvalidInput:
			code, resp.Error.Code = http.StatusBadGateway, "upstream_error"
		}
	}
	a.json(w, code, resp)
}
