package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"studio/internal/domain"
	"studio/internal/infra"
)

const (
	DefaultModel   = "gemini-2.5-flash-image"
	defaultTimeout = 120 * time.Second
	noImageText    = "No image generated"
)

// Options controls how the Gemini editor is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Gemini edits images with a Gemini image model through the genai SDK. A
// missing API key is not rejected up front; every Edit reports it as an
// authorization failure instead.
type Gemini struct {
	client *genai.Client
	model  string
	logger *infra.Logger
}

// NewGemini constructs a Gemini editor. Callers may provide a nil HTTP
// client; one with a generous timeout for image generation is created.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	g := &Gemini{model: model, logger: logger}

	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		logger.Warn().Str("model", model).Msg("gateway: no Gemini API key configured; edits will fail")
		return g, nil
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gateway: create genai client: %w", err)
	}
	g.client = client
	return g, nil
}

// Model returns the configured Gemini model identifier.
func (g *Gemini) Model() string {
	return g.model
}

// Edit sends image and prompt as one user turn and returns the first image
// part of the response.
func (g *Gemini) Edit(ctx context.Context, image domain.ImageRef, prompt, mimeType string) (domain.ImageRef, error) {
	if image.IsZero() {
		return domain.ImageRef{}, &Error{Kind: KindInvalidInput, Message: "image is empty", Err: domain.ErrInvalidImage}
	}
	if g.client == nil {
		return domain.ImageRef{}, &Error{
			Kind:    KindUnauthorized,
			Message: "Gemini API key is not configured (unauthorized)",
		}
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = image.MIMEType()
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image.Bytes()}},
			{Text: prompt},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Warn().
			Err(err).
			Str("model", g.model).
			Dur("duration", time.Since(start)).
			Msg("gateway: gemini edit failed")
		return domain.ImageRef{}, transportError(err)
	}

	result, text := extractImage(resp)
	if result.IsZero() {
		if text == "" {
			text = noImageText
		}
		g.logger.Info().
			Str("model", g.model).
			Int("text_length", len(text)).
			Msg("gateway: gemini returned no image")
		return domain.ImageRef{}, &Error{Kind: KindRefusal, Message: RefusalPrefix + text}
	}
	if result.MIMEType() == "" {
		result = domain.NewImageRef(mimeType, result.Bytes())
	}

	g.logger.Debug().
		Str("model", g.model).
		Str("mime", result.MIMEType()).
		Int("bytes", result.Len()).
		Dur("duration", time.Since(start)).
		Msg("gateway: gemini edit completed")

	return result, nil
}

// extractImage returns the first inline image of the first candidate that
// carries one, plus any text the model produced alongside.
func extractImage(resp *genai.GenerateContentResponse) (domain.ImageRef, string) {
	if resp == nil {
		return domain.ImageRef{}, ""
	}
	var texts []string
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return domain.NewImageRef(part.InlineData.MIMEType, part.InlineData.Data), ""
			}
			if t := strings.TrimSpace(part.Text); t != "" {
				texts = append(texts, t)
			}
		}
	}
	if len(texts) > 0 {
		return domain.ImageRef{}, strings.Join(texts, "\n")
	}
	if fb := resp.PromptFeedback; fb != nil {
		if msg := strings.TrimSpace(fb.BlockReasonMessage); msg != "" {
			return domain.ImageRef{}, msg
		}
		if reason := strings.TrimSpace(string(fb.BlockReason)); reason != "" {
			return domain.ImageRef{}, "blocked (" + reason + ")"
		}
	}
	return domain.ImageRef{}, ""
}

func transportError(err error) *Error {
	kind := KindTransport
	if code := apiErrorCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
		kind = KindUnauthorized
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func apiErrorCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

var _ Editor = (*Gemini)(nil)
