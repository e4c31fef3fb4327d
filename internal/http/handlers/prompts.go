package handlers

import (
	"net/http"
)

type generateResponse struct {
	sessionView
	Started bool   `json:"started"`
	Notice  string `json:"notice,omitempty"`
}

// Generate starts a generation in the background and answers immediately;
// clients poll the session for the outcome. Triggers that cannot start are
// answered with 409 and the unchanged state.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	sess := a.loadSession(w, r)
	if sess == nil {
		return
	}
	if _, ok := sess.Trigger(a.BaseCtx); !ok {
		snap := sess.Snapshot()
		notice := a.message(r, "generate.not_ready")
		if snap.Ready {
			notice = a.message(r, "generate.busy")
		}
		a.json(w, http.StatusConflict, generateResponse{sessionView: a.view(r, snap), Notice: notice})
		return
	}
	a.json(w, http.StatusAccepted, generateResponse{sessionView: a.view(r, sess.Snapshot()), Started: true})
}

// CopyPrompt returns the current prompt as plain text for the clipboard.
func (a *App) CopyPrompt(w http.ResponseWriter, r *http.Request) {
	sess := a.loadSession(w, r)
	if sess == nil {
		return
	}
	text, err := sess.Prompt()
	if err != nil {
		a.error(w, http.StatusConflict, "no_prompt", a.message(r, "prompt.none"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
