// Package session holds the per-user state of the design prompt workflow: the
// reference image, the content text, the workflow phase and the last
// generated prompt.
package session

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stylefuse/internal/domain"
	"stylefuse/internal/infra"
	"stylefuse/internal/providers/prompt"
	"stylefuse/internal/reference"
)

// Options configures a Session. Previews and Logger are optional.
type Options struct {
	ID        string
	Generator prompt.Generator
	Previews  *PreviewRegistry
	Logger    *infra.Logger
	Now       func() time.Time
}

// Session is one user's workflow. All mutation goes through its methods; the
// generation call runs without holding the lock and at most one runs at a time.
type Session struct {
	id        string
	generator prompt.Generator
	previews  *PreviewRegistry
	logger    *infra.Logger
	now       func() time.Time

	mu         sync.Mutex
	image      *domain.ReferenceImage
	text       string
	phase      domain.Phase
	prompt     string
	lastErr    error
	uploadSeq  uint64
	appliedSeq uint64
	updatedAt  time.Time
	closed     bool
}

// ImageInfo describes the current reference image without exposing its bytes.
type ImageInfo struct {
	Name          string
	MIMEType      string
	Size          int
	PreviewHandle string
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	ID        string
	Phase     domain.Phase
	Ready     bool
	Text      string
	Image     *ImageInfo
	Prompt    string
	Err       error
	UpdatedAt time.Time
}

// UploadTicket orders concurrent uploads; see BeginUpload.
type UploadTicket uint64

func New(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	previews := opts.Previews
	if previews == nil {
		previews = NewPreviewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:        id,
		generator: opts.Generator,
		previews:  previews,
		logger:    logger,
		now:       now,
		phase:     domain.PhaseIdle,
		updatedAt: now(),
	}
}

func (s *Session) ID() string { return s.id }

// BeginUpload reserves a slot for an upload whose encoding is about to start.
// Uploads are last-write-wins by start order: CompleteUpload discards the
// result of any ticket older than one already applied.
func (s *Session) BeginUpload() UploadTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadSeq++
	return UploadTicket(s.uploadSeq)
}

// CompleteUpload applies up for ticket and reports whether it was applied.
// A nil upload clears the image.
func (s *Session) CompleteUpload(ticket UploadTicket, up *reference.Upload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || uint64(ticket) <= s.appliedSeq {
		s.logger.Debug().
			Str("session_id", s.id).
			Uint64("ticket", uint64(ticket)).
			Msg("session: superseded upload discarded")
		return false
	}
	s.appliedSeq = uint64(ticket)
	s.setImageLocked(up)
	return true
}

// SetImage replaces the reference image; nil clears it and releases the
// previous preview handle.
func (s *Session) SetImage(up *reference.Upload) {
	s.CompleteUpload(s.BeginUpload(), up)
}

func (s *Session) setImageLocked(up *reference.Upload) {
	if s.image != nil {
		s.previews.Revoke(s.image.PreviewHandle)
		s.image = nil
	}
	if up != nil {
		s.image = &domain.ReferenceImage{
			Name:          up.Name,
			MIMEType:      up.MIMEType,
			Raw:           up.Data,
			PreviewHandle: s.previews.Register(up.Data, up.MIMEType),
			Payload:       up.Payload,
		}
	}
	s.touchLocked()
}

// SetText stores the content text verbatim.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.touchLocked()
}

// Ready reports whether an image is present and the text is not blank.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyLocked()
}

func (s *Session) readyLocked() bool {
	return s.image != nil && strings.TrimSpace(s.text) != ""
}

// Trigger starts a generation with the current image and text. It is a no-op,
// returning false, when the session is not ready or a generation is already
// running. Otherwise the returned channel is closed once the phase has moved
// to success or error.
func (s *Session) Trigger(ctx context.Context) (<-chan struct{}, bool) {
	s.mu.Lock()
	if s.closed || s.phase == domain.PhaseAnalyzing || !s.readyLocked() {
		s.mu.Unlock()
		return nil, false
	}
	payload := s.image.Payload
	text := s.text
	s.phase = domain.PhaseAnalyzing
	s.lastErr = nil
	s.touchLocked()
	s.mu.Unlock()

	s.logger.Info().
		Str("session_id", s.id).
		Int("text_len", len(text)).
		Msg("session: generation started")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if s.generator == nil {
			s.finish("", domain.ErrMissingAPIKey)
			return
		}
		result, err := s.generator.Generate(ctx, payload, text)
		s.finish(result, err)
	}()
	return done, true
}

// Generate is Trigger followed by a wait for the outcome.
func (s *Session) Generate(ctx context.Context) bool {
	done, ok := s.Trigger(ctx)
	if !ok {
		return false
	}
	<-done
	return true
}

func (s *Session) finish(result string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.phase = domain.PhaseError
		s.lastErr = err
		s.logger.Error().
			Err(err).
			Str("session_id", s.id).
			Msg("session: generation failed")
	} else {
		s.phase = domain.PhaseSuccess
		s.prompt = strings.TrimSpace(result)
		s.logger.Info().
			Str("session_id", s.id).
			Int("prompt_len", len(s.prompt)).
			Msg("session: generation succeeded")
	}
	s.touchLocked()
}

// Prompt returns the last generated prompt for copying.
func (s *Session) Prompt() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prompt == "" {
		return "", domain.ErrNoPrompt
	}
	return s.prompt, nil
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.id,
		Phase:     s.phase,
		Ready:     s.readyLocked(),
		Text:      s.text,
		Prompt:    s.prompt,
		Err:       s.lastErr,
		UpdatedAt: s.updatedAt,
	}
	if s.image != nil {
		snap.Image = &ImageInfo{
			Name:          s.image.Name,
			MIMEType:      s.image.MIMEType,
			Size:          s.image.Size(),
			PreviewHandle: s.image.PreviewHandle,
		}
	}
	return snap
}

// UpdatedAt returns the time of the last state change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Close ends the session and releases its preview. A running generation still
// completes but no further triggers or uploads are accepted.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.image != nil {
		s.previews.Revoke(s.image.PreviewHandle)
		s.image = nil
	}
	s.closed = true
}

func (s *Session) touchLocked() {
	s.updatedAt = s.now()
}
