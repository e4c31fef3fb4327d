package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stylefuse/internal/http/handlers"
	"stylefuse/internal/i18n"
	"stylefuse/internal/providers/prompt"
	"stylefuse/internal/session"
)

type sessionBody struct {
	ID    string `json:"id"`
	Phase string `json:"phase"`
	Ready bool   `json:"ready"`
	Text  string `json:"text"`
	Image *struct {
		Name       string `json:"name"`
		MIMEType   string `json:"mime_type"`
		Size       int    `json:"size"`
		PreviewURL string `json:"preview_url"`
	} `json:"image"`
	Prompt  string `json:"prompt"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Applied bool   `json:"applied"`
	Started bool   `json:"started"`
	Notice  string `json:"notice"`
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	store   *session.Store
}

func newTestAPI(t *testing.T, gen prompt.Generator, rateLimit int) *testAPI {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store := session.NewStore(session.StoreOptions{Generator: gen, Logger: &logger})
	app := handlers.NewApp(context.Background(), store, i18n.Default(), &logger, 1<<20)
	handler := NewRouter(app, Options{
		Logger:          logger,
		AllowedOrigins:  []string{"http://localhost:5173"},
		DefaultLocale:   "en",
		RateLimitPerMin: rateLimit,
	})
	return &testAPI{t: t, handler: handler, store: store}
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) decode(rec *httptest.ResponseRecorder) sessionBody {
	a.t.Helper()
	var body sessionBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		a.t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func (a *testAPI) createSession() sessionBody {
	a.t.Helper()
	rec := a.do(httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	return a.decode(rec)
}

func (a *testAPI) setText(id, text string) sessionBody {
	a.t.Helper()
	payload, _ := json.Marshal(map[string]string{"text": text})
	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/"+id+"/text", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := a.do(req)
	if rec.Code != http.StatusOK {
		a.t.Fatalf("set text status = %d: %s", rec.Code, rec.Body.String())
	}
	return a.decode(rec)
}

func (a *testAPI) upload(id, filename, source string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		a.t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.WriteField("source", source)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/"+id+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req)
}

func (a *testAPI) waitSettled(id string) sessionBody {
	a.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec := a.do(httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id, nil))
		body := a.decode(rec)
		if body.Phase != "analyzing" {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	a.t.Fatal("generation did not settle")
	return sessionBody{}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 30, G: 60, B: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil, 0)
	rec := api.do(httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestGenerateFlow(t *testing.T) {
	var gotContent string
	api := newTestAPI(t, prompt.GeneratorFunc(func(ctx context.Context, payload, content string) (string, error) {
		gotContent = content
		if !strings.HasPrefix(payload, "data:image/png;base64,") {
			return "", errors.New("unexpected payload")
		}
		return "  A bold poster...  ", nil
	}), 0)

	created := api.createSession()
	if created.Phase != "idle" || created.Ready {
		t.Fatalf("unexpected initial state: %+v", created)
	}
	if created.Message != "Ready to generate. Upload an image and add text to start." {
		t.Fatalf("idle message = %q", created.Message)
	}

	api.setText(created.ID, "Summer Sale")
	rec := api.do(httptest.NewRequest(http.MethodPost, "/v1/sessions/"+created.ID+"/generate", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("generate without image status = %d, want 409", rec.Code)
	}
	if body := api.decode(rec); body.Phase != "idle" || body.Started {
		t.Fatalf("no-op trigger changed state: %+v", body)
	}

	rec = api.upload(created.ID, "notes.txt", "picker", []byte("plain words, not pixels"))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("non-image upload status = %d, want 415", rec.Code)
	}
	if body := api.decode(rec); body.Image != nil || body.Applied {
		t.Fatalf("non-image upload changed state: %+v", body)
	}

	data := pngBytes(t)
	rec = api.upload(created.ID, "ref.png", "drop", data)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	uploaded := api.decode(rec)
	if !uploaded.Applied || uploaded.Image == nil || uploaded.Image.MIMEType != "image/png" || !uploaded.Ready {
		t.Fatalf("unexpected upload state: %+v", uploaded)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, uploaded.Image.PreviewURL, nil))
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), data) {
		t.Fatalf("preview status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("preview content type = %q", rec.Header().Get("Content-Type"))
	}

	api.setText(created.ID, "Tech Conference 2025")
	rec = api.do(httptest.NewRequest(http.MethodPost, "/v1/sessions/"+created.ID+"/generate", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("generate status = %d: %s", rec.Code, rec.Body.String())
	}
	if !api.decode(rec).Started {
		t.Fatal("expected started=true")
	}

	settled := api.waitSettled(created.ID)
	if settled.Phase != "success" || settled.Prompt != "A bold poster..." {
		t.Fatalf("unexpected settled state: %+v", settled)
	}
	if gotContent != "Tech Conference 2025" {
		t.Fatalf("generator content = %q", gotContent)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID+"/prompt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "A bold poster..." {
		t.Fatalf("copy prompt = %d %q", rec.Code, rec.Body.String())
	}

	rec = api.do(httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+created.ID+"/image", nil))
	if body := api.decode(rec); body.Image != nil || body.Ready {
		t.Fatalf("clear image state: %+v", body)
	}
	rec = api.do(httptest.NewRequest(http.MethodGet, uploaded.Image.PreviewURL, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("revoked preview status = %d, want 404", rec.Code)
	}

	rec = api.do(httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+created.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = api.do(httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestGenerateFailureSurfacesErrorPhase(t *testing.T) {
	gen, err := prompt.NewGeminiGenerator(context.Background(), prompt.GeminiOptions{})
	if err != nil {
		t.Fatalf("NewGeminiGenerator returned error: %v", err)
	}
	api := newTestAPI(t, gen, 0)
	created := api.createSession()
	api.setText(created.ID, "Summer Sale")
	if rec := api.upload(created.ID, "ref.png", "picker", pngBytes(t)); rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec := api.do(httptest.NewRequest(http.MethodPost, "/v1/sessions/"+created.ID+"/generate", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("generate status = %d", rec.Code)
	}
	settled := api.waitSettled(created.ID)
	if settled.Phase != "error" {
		t.Fatalf("phase = %q, want error", settled.Phase)
	}
	if settled.Error != "API Key is missing." {
		t.Fatalf("error = %q", settled.Error)
	}
	if settled.Message != "Something went wrong during generation. Please try again." {
		t.Fatalf("message = %q", settled.Message)
	}
	if settled.Prompt != "" {
		t.Fatalf("prompt = %q, want empty", settled.Prompt)
	}

	rec = api.do(httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID+"/prompt", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("copy without prompt status = %d, want 409", rec.Code)
	}
}

func TestGenerateWhileAnalyzingConflicts(t *testing.T) {
	release := make(chan struct{})
	api := newTestAPI(t, prompt.GeneratorFunc(func(ctx context.Context, payload, content string) (string, error) {
		<-release
		return "done", nil
	}), 0)
	created := api.createSession()
	api.setText(created.ID, "Summer Sale")
	api.upload(created.ID, "ref.png", "picker", pngBytes(t))

	first := api.do(httptest.NewRequest(http.MethodPost, "/v1/sessions/"+created.ID+"/generate", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first generate status = %d", first.Code)
	}
	second := api.do(httptest.NewRequest(http.MethodPost, "/v1/sessions/"+created.ID+"/generate", nil))
	if second.Code != http.StatusConflict {
		t.Fatalf("second generate status = %d, want 409", second.Code)
	}
	if body := api.decode(second); body.Notice != "A prompt is already being generated." {
		t.Fatalf("notice = %q", body.Notice)
	}
	close(release)
	api.waitSettled(created.ID)
}

func TestLocalizedMessages(t *testing.T) {
	api := newTestAPI(t, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	req.Header.Set("Accept-Language", "id-ID,id;q=0.9")
	rec := api.do(req)
	body := api.decode(rec)
	if body.Message != "Siap membuat prompt. Unggah gambar dan tambahkan teks untuk mulai." {
		t.Fatalf("message = %q", body.Message)
	}
	if rec.Header().Get("Content-Language") != "id" {
		t.Fatalf("Content-Language = %q", rec.Header().Get("Content-Language"))
	}
}

func TestGenerateRateLimited(t *testing.T) {
	api := newTestAPI(t, prompt.GeneratorFunc(func(ctx context.Context, payload, content string) (string, error) {
		return "ok", nil
	}), 1)
	created := api.createSession()
	for i, want := range []int{http.StatusConflict, http.StatusTooManyRequests} {
		rec := api.do(httptest.NewRequest(http.MethodPost, "/v1/sessions/"+created.ID+"/generate", nil))
		if rec.Code != want {
			t.Fatalf("request %d status = %d, want %d", i, rec.Code, want)
		}
	}
}

func TestUnknownSession(t *testing.T) {
	api := newTestAPI(t, nil, 0)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/v1/sessions/missing", nil),
		httptest.NewRequest(http.MethodPost, "/v1/sessions/missing/generate", nil),
		httptest.NewRequest(http.MethodDelete, "/v1/sessions/missing", nil),
		httptest.NewRequest(http.MethodGet, "/v1/previews/missing", nil),
	} {
		if rec := api.do(req); rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s status = %d, want 404", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestSetTextRejectsBadPayload(t *testing.T) {
	api := newTestAPI(t, nil, 0)
	created := api.createSession()
	req := httptest.NewRequest(http.MethodPut, "/v1/sessions/"+created.ID+"/text", strings.NewReader(`{"content":"x"}`))
	if rec := api.do(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMetricsCountsPhases(t *testing.T) {
	api := newTestAPI(t, nil, 0)
	api.createSession()
	api.createSession()
	rec := api.do(httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if body["sessions"] != 2 || body["phase_idle"] != 2 {
		t.Fatalf("metrics = %v", body)
	}
}

func TestUploadOversizedBodyIsTooLarge(t *testing.T) {
	api := newTestAPI(t, nil, 0)
	created := api.createSession()
	data := append(pngBytes(t), make([]byte, 3<<20)...)

	rec := api.upload(created.ID, "huge.png", "picker", data)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"code":"too_large"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if body := api.waitSettled(created.ID); body.Image != nil {
		t.Fatalf("oversized upload changed state: %+v", body)
	}
}
