package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/history"
	"studio/internal/session"
	archive "studio/pkg/zip"
)

type uploadRequest struct {
	Image    string `json:"image" validate:"required,startswith=data:"`
	MIMEType string `json:"mime_type" validate:"omitempty,startswith=image/"`
}

type editRequest struct {
	Prompt string `json:"prompt" validate:"max=4000"`
}

type selectRequest struct {
	Original bool `json:"original"`
	Index    *int `json:"index" validate:"omitempty,min=0"`
}

type viewRequest struct {
	View string `json:"view" validate:"required,oneof=current original"`
}

type draftRequest struct {
	Prompt string `json:"prompt" validate:"max=4000"`
}

type statusResponse struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

type sessionResponse struct {
	ID        string         `json:"id"`
	Status    statusResponse `json:"status"`
	View      string         `json:"view"`
	Draft     string         `json:"draft"`
	MIMEType  string         `json:"mime_type,omitempty"`
	Original  string         `json:"original,omitempty"`
	Current   string         `json:"current,omitempty"`
	History   []string       `json:"history"`
	CanUndo   bool           `json:"can_undo"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func toSessionResponse(s session.Snapshot) sessionResponse {
	hist := make([]string, len(s.History))
	for i, ref := range s.History {
		hist[i] = ref.DataURL()
	}
	return sessionResponse{
		ID:        s.ID,
		Status:    statusResponse{State: string(s.Status.State), Message: s.Status.Message},
		View:      string(s.View),
		Draft:     s.Draft,
		MIMEType:  s.MIMEType,
		Original:  s.Original.DataURL(),
		Current:   s.Current.DataURL(),
		History:   hist,
		CanUndo:   s.CanUndo(),
		UpdatedAt: s.UpdatedAt,
	}
}

// parseUpload validates the upload boundary payload: a base64 image data URL
// plus its MIME type.
func (a *App) parseUpload(req uploadRequest) (domain.ImageRef, string, error) {
	ref, err := domain.ParseDataURL(req.Image)
	if err != nil {
		return domain.ImageRef{}, "", err
	}
	if a.MaxUploadBytes > 0 && int64(ref.Len()) > a.MaxUploadBytes {
		return domain.ImageRef{}, "", fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidImage, a.MaxUploadBytes)
	}
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = ref.MIMEType()
	}
	return ref, mimeType, nil
}

func (a *App) controller(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	ctrl, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.sessionError(w, err, nil)
		return nil, false
	}
	return ctrl, true
}

func (a *App) respond(w http.ResponseWriter, code int, snap session.Snapshot, err error) {
	if err != nil {
		a.sessionError(w, err, nil)
		return
	}
	a.json(w, code, toSessionResponse(snap))
}

// CreateSession starts a session from an uploaded image.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !a.decode(w, r, &req) {
		return
	}
	ref, mimeType, err := a.parseUpload(req)
	if err != nil {
		a.sessionError(w, err, nil)
		return
	}
	ctrl := a.Sessions.Create()
	snap, err := ctrl.Upload(ref, mimeType)
	if err != nil {
		_ = a.Sessions.Delete(ctrl.ID())
		a.sessionError(w, err, nil)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("session_id", ctrl.ID()).
		Str("mime", mimeType).
		Int("bytes", ref.Len()).
		Msg("session created")
	w.Header().Set("Location", "/v1/sessions/"+ctrl.ID())
	a.json(w, http.StatusCreated, toSessionResponse(snap))
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(ctrl.Snapshot()))
}

// DeleteSession discards a session; an edit still running for it is dropped.
func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		a.sessionError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceImage is "upload another image": the session restarts from the new
// image and any running edit result is discarded.
func (a *App) ReplaceImage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	var req uploadRequest
	if !a.decode(w, r, &req) {
		return
	}
	ref, mimeType, err := a.parseUpload(req)
	if err != nil {
		a.sessionError(w, err, nil)
		return
	}
	snap, err := ctrl.Upload(ref, mimeType)
	a.respond(w, http.StatusOK, snap, err)
}

// SubmitEdit runs one edit instruction against the current image and blocks
// until the model answers.
func (a *App) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	var req editRequest
	if !a.decode(w, r, &req) {
		return
	}
	snap, err := ctrl.Submit(r.Context(), req.Prompt)
	if err != nil {
		a.sessionError(w, err, &snap)
		return
	}
	a.json(w, http.StatusOK, toSessionResponse(snap))
}

func (a *App) Undo(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	snap, err := ctrl.Undo()
	a.respond(w, http.StatusOK, snap, err)
}

func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	snap, err := ctrl.Reset()
	a.respond(w, http.StatusOK, snap, err)
}

// SelectHistoryPoint navigates to the original or to a history entry.
func (a *App) SelectHistoryPoint(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if !a.decode(w, r, &req) {
		return
	}
	var point history.Point
	switch {
	case req.Original:
		point = history.OriginalPoint()
	case req.Index != nil:
		point = history.HistoryPoint(*req.Index)
	default:
		a.error(w, http.StatusBadRequest, "bad_request", "original or index is required")
		return
	}
	snap, err := ctrl.Select(point)
	a.respond(w, http.StatusOK, snap, err)
}

func (a *App) SetView(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	var req viewRequest
	if !a.decode(w, r, &req) {
		return
	}
	view, valid := session.ParseView(req.View)
	if !valid {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown view")
		return
	}
	snap, err := ctrl.SetView(view)
	a.respond(w, http.StatusOK, snap, err)
}

func (a *App) SetDraft(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	var req draftRequest
	if !a.decode(w, r, &req) {
		return
	}
	snap, err := ctrl.SetDraft(req.Prompt)
	a.respond(w, http.StatusOK, snap, err)
}

func (a *App) DismissError(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	snap, err := ctrl.DismissError()
	a.respond(w, http.StatusOK, snap, err)
}

// Download streams the current image as an attachment.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	current := ctrl.Snapshot().Current
	if current.IsZero() {
		a.sessionError(w, domain.ErrNoImage, nil)
		return
	}
	data := current.Bytes()
	w.Header().Set("Content-Type", current.MIMEType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=edited-product.%s", current.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Export bundles the original, every history entry and the current image
// into one zip.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := a.controller(w, r)
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	if snap.Current.IsZero() {
		a.sessionError(w, domain.ErrNoImage, nil)
		return
	}
	entries := make([]archive.Entry, 0, len(snap.History)+2)
	entries = append(entries, archive.Entry{
		Name:     "original." + snap.Original.Extension(),
		Data:     snap.Original.Bytes(),
		Modified: snap.UpdatedAt,
	})
	for i, ref := range snap.History {
		entries = append(entries, archive.Entry{
			Name:     fmt.Sprintf("history-%02d.%s", i+1, ref.Extension()),
			Data:     ref.Bytes(),
			Modified: snap.UpdatedAt,
		})
	}
	entries = append(entries, archive.Entry{
		Name:     "edited-product." + snap.Current.Extension(),
		Data:     snap.Current.Bytes(),
		Modified: snap.UpdatedAt,
	})
	data, err := archive.Archive(entries)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("session_id", snap.ID).Msg("export failed")
		a.error(w, http.StatusInternalServerError, "internal", "could not build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", "attachment; filename=edit-session.zip")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
