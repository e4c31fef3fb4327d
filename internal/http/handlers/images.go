package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"stylefuse/internal/domain"
	"stylefuse/internal/reference"
)

const uploadField = "image"

// UploadImage accepts a multipart reference image. Any file that does not
// sniff as an image is refused without touching the session, whichever
// source it came from.
func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	sess := a.loadSession(w, r)
	if sess == nil {
		return
	}
	if a.MaxUploadBytes > 0 {
		// Leave headroom for the multipart envelope; reference.Read enforces
		// the exact file limit.
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+1<<20)
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", a.tooLargeMessage())
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "multipart field \""+uploadField+"\" required")
		return
	}
	defer func() {
		_ = file.Close()
	}()
	source := reference.ParseSource(r.FormValue("source"))

	ticket := sess.BeginUpload()
	up, err := reference.Read(r.Context(), file, header.Filename, a.MaxUploadBytes)
	if err != nil {
		logEvt := a.Logger.Warn().
			Err(err).
			Str("session_id", sess.ID()).
			Str("source", string(source)).
			Str("filename", header.Filename)
		switch {
		case errors.Is(err, domain.ErrUnsupportedMedia):
			logEvt.Msg("upload ignored: not an image")
			a.json(w, http.StatusUnsupportedMediaType, uploadResult(a.view(r, sess.Snapshot()), false, a.message(r, "upload.unsupported")))
		case errors.Is(err, reference.ErrTooLarge):
			logEvt.Msg("upload ignored: too large")
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", a.tooLargeMessage())
		default:
			logEvt.Msg("upload failed: unreadable file")
			a.json(w, http.StatusUnprocessableEntity, uploadResult(a.view(r, sess.Snapshot()), false, a.message(r, "upload.failed")))
		}
		return
	}

	applied := sess.CompleteUpload(ticket, up)
	a.Logger.Debug().
		Str("session_id", sess.ID()).
		Str("source", string(source)).
		Str("mime", up.MIMEType).
		Int("bytes", len(up.Data)).
		Bool("applied", applied).
		Msg("reference image uploaded")
	a.json(w, http.StatusOK, uploadResult(a.view(r, sess.Snapshot()), applied, ""))
}

// ClearImage removes the reference image and revokes its preview.
func (a *App) ClearImage(w http.ResponseWriter, r *http.Request) {
	sess := a.loadSession(w, r)
	if sess == nil {
		return
	}
	sess.SetImage(nil)
	a.json(w, http.StatusOK, a.view(r, sess.Snapshot()))
}

// Preview serves the bytes behind a live preview handle.
func (a *App) Preview(w http.ResponseWriter, r *http.Request) {
	data, mimeType, ok := a.Sessions.Previews().Lookup(chi.URLParam(r, "handle"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "preview not found")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *App) tooLargeMessage() string {
	return "image exceeds " + strconv.FormatInt(a.MaxUploadBytes>>20, 10) + " MB"
}

type uploadResponse struct {
	sessionView
	Applied bool   `json:"applied"`
	Notice  string `json:"notice,omitempty"`
}

func uploadResult(v sessionView, applied bool, notice string) uploadResponse {
	return uploadResponse{sessionView: v, Applied: applied, Notice: notice}
}
