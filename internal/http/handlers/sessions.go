package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stylefuse/internal/domain"
	"stylefuse/internal/session"
)

type imageView struct {
	Name       string `json:"name"`
	MIMEType   string `json:"mime_type"`
	Size       int    `json:"size"`
	PreviewURL string `json:"preview_url"`
}

type sessionView struct {
	ID        string       `json:"id"`
	Phase     domain.Phase `json:"phase"`
	Ready     bool         `json:"ready"`
	Text      string       `json:"text"`
	Image     *imageView   `json:"image"`
	Prompt    string       `json:"prompt"`
	Error     string       `json:"error,omitempty"`
	Message   string       `json:"message"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type setTextRequest struct {
	Text *string `json:"text"`
}

func (a *App) view(r *http.Request, snap session.Snapshot) sessionView {
	v := sessionView{
		ID:        snap.ID,
		Phase:     snap.Phase,
		Ready:     snap.Ready,
		Text:      snap.Text,
		Prompt:    snap.Prompt,
		Message:   a.message(r, "phase."+string(snap.Phase)),
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Err != nil {
		v.Error = snap.Err.Error()
	}
	if snap.Image != nil {
		v.Image = &imageView{
			Name:       snap.Image.Name,
			MIMEType:   snap.Image.MIMEType,
			Size:       snap.Image.Size,
			PreviewURL: "/v1/previews/" + snap.Image.PreviewHandle,
		}
	}
	return v
}

// loadSession resolves {id}; it writes the 404 itself and returns nil.
func (a *App) loadSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "session not found")
		return nil
	}
	return sess
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := a.Sessions.Create()
	a.Logger.Debug().Str("session_id", sess.ID()).Msg("session created")
	a.json(w, http.StatusCreated, a.view(r, sess.Snapshot()))
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := a.loadSession(w, r)
	if sess == nil {
		return
	}
	a.json(w, http.StatusOK, a.view(r, sess.Snapshot()))
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) SetText(w http.ResponseWriter, r *http.Request) {
	sess := a.loadSession(w, r)
	if sess == nil {
		return
	}
	var req setTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	sess.SetText(*req.Text)
	a.json(w, http.StatusOK, a.view(r, sess.Snapshot()))
}
