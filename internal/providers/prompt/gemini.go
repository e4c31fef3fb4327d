package prompt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"stylefuse/internal/domain"
	"stylefuse/internal/infra"
	"stylefuse/internal/reference"
)

const (
	// GeminiModel is the model every design prompt is generated with.
	GeminiModel = "gemini-3-pro-preview"
	// ThinkingBudget is the reasoning token budget requested for each call.
	ThinkingBudget int32 = 10240
)

// GeminiOptions controls how the Gemini generator is configured. BaseURL and
// HTTPClient are only overridden in tests.
type GeminiOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// GeminiGenerator performs the single generateContent exchange for a design
// prompt. It holds no per-call state and is safe for concurrent use.
type GeminiGenerator struct {
	apiKey string
	client *genai.Client
	logger *infra.Logger
}

// NewGeminiGenerator builds a generator. A missing API key is not an error
// here: every Generate call then fails with domain.ErrMissingAPIKey before
// touching the network.
func NewGeminiGenerator(ctx context.Context, opts GeminiOptions) (*GeminiGenerator, error) {
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	g := &GeminiGenerator{
		apiKey: strings.TrimSpace(opts.APIKey),
		logger: logger,
	}
	if g.apiKey == "" {
		return g, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(base, "/") + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	g.client = client
	return g, nil
}

// Generate sends the reference image and content text to Gemini and returns
// the trimmed prompt text.
func (g *GeminiGenerator) Generate(ctx context.Context, imagePayload, content string) (string, error) {
	if g.apiKey == "" || g.client == nil {
		return "", domain.ErrMissingAPIKey
	}

	data, err := reference.Decode(imagePayload)
	if err != nil {
		return "", err
	}

	budget := ThinkingBudget
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, reference.AssumedMIMEType),
			genai.NewPartFromText(BuildContentInstruction(content)),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: &budget},
	}

	resp, err := g.client.Models.GenerateContent(ctx, GeminiModel, contents, config)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("model", GeminiModel).
			Msg("gemini: design prompt generation failed")
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := extractText(resp)
	g.logger.Debug().
		Str("model", GeminiModel).
		Int("chars", len(text)).
		Msg("gemini: design prompt generated")
	return finalizePrompt(text), nil
}

// extractText joins the non-thought text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

var _ Generator = (*GeminiGenerator)(nil)
