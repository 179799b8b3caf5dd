package acl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/clients"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

const geminiProvider = "gemini"

// contentGenerator is the part of genai.Models the providers use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures the Gemini providers.
type GeminiConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	Temperature float32

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Client carries retry, circuit breaking and tracing for the SDK's
	// requests. Optional.
	Client *clients.Client

	Logger *slog.Logger
}

// Gemini implements the wisdom, explanation and illustration providers on
// the Gemini API.
type Gemini struct {
	models      contentGenerator
	client      *clients.Client
	textModel   string
	imageModel  string
	temperature float32
	logger      *slog.Logger
}

// NewGemini creates the Gemini providers. An API key is required.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, domain.NewValidationError("provider.gemini.api_key", "is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}

	if cfg.Client != nil {
		cc.HTTPClient = cfg.Client.HTTPClient()
	}

	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return newGemini(client.Models, cfg), nil
}

func newGemini(models contentGenerator, cfg GeminiConfig) *Gemini {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gemini{
		models:      models,
		client:      cfg.Client,
		textModel:   cfg.TextModel,
		imageModel:  cfg.ImageModel,
		temperature: cfg.Temperature,
		logger:      logger.With(slog.String("component", "acl.Gemini")),
	}
}

var wisdomSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"quote": {
			Type:        genai.TypeString,
			Description: "The quote or aphorism itself.",
		},
		"source": {
			Type:        genai.TypeString,
			Description: "The author, text or tradition it comes from, e.g. 'The Kybalion' or 'Carl Jung'.",
		},
		"topic": {
			Type:        genai.TypeString,
			Description: "The esoteric category, e.g. Alchemy, Tarot, Kabbalah or Gnosticism.",
		},
		"briefInterpretation": {
			Type:        genai.TypeString,
			Description: "A modern interpretation in one or two sentences.",
		},
	},
	Required:         []string{"quote", "source", "topic", "briefInterpretation"},
	PropertyOrdering: []string{"quote", "source", "topic", "briefInterpretation"},
}

const wisdomPrompt = "Generate a profound esoteric, mystical or occult wisdom entry for today, " +
	"drawn from traditions such as Alchemy, Hermeticism, Gnosticism or Jungian psychology. " +
	"Favor enlightenment and inner transformation over dark or negative magic. " +
	"Give a quote, its source, its topic and a very brief interpretation."

// Generate implements ports.WisdomProvider.
func (g *Gemini) Generate(ctx context.Context) (*domain.WisdomEntry, error) {
	const op = "generate"

	resp, err := g.models.GenerateContent(ctx, g.textModel, genai.Text(wisdomPrompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   wisdomSchema,
	})
	if err != nil {
		return nil, g.mapError(op, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, domain.NewProviderError(geminiProvider, op, ErrEmptyResponse)
	}

	var dto wisdomDTO
	if err := json.Unmarshal([]byte(text), &dto); err != nil {
		return nil, domain.NewProviderError(geminiProvider, op, fmt.Errorf("decoding wisdom: %w", err))
	}

	wisdom, err := dto.translate()
	if err != nil {
		return nil, domain.NewProviderError(geminiProvider, op, err)
	}

	g.logger.DebugContext(ctx, "wisdom generated", slog.String("topic", wisdom.Topic))

	return wisdom, nil
}

func explanationPrompt(w domain.WisdomEntry) string {
	return fmt.Sprintf(`You are Nicole, a friendly and knowledgeable guide to the esoteric.
Explain this teaching in depth for a modern blog audience.

Quote: %q
Source: %s
Topic: %s

Cover its history and symbolism, and how it applies to personal growth today.
Keep it engaging and around 300 words. Format the answer as Markdown.`, w.Quote, w.Source, w.Topic)
}

// Explain implements ports.ExplanationProvider.
func (g *Gemini) Explain(ctx context.Context, wisdom domain.WisdomEntry) (string, error) {
	const op = "explain"

	resp, err := g.models.GenerateContent(ctx, g.textModel, genai.Text(explanationPrompt(wisdom)), nil)
	if err != nil {
		return "", g.mapError(op, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", domain.NewProviderError(geminiProvider, op, ErrEmptyResponse)
	}

	return text, nil
}

func illustrationPrompt(w domain.WisdomEntry) string {
	return fmt.Sprintf("Create a mystical, symbolic illustration of %q. "+
		"Style: tarot card woodcut, gold on black, vintage occult engraving, high contrast. "+
		"Do not put any text in the image.", w.Topic+" - "+w.Quote)
}

// Illustrate implements ports.IllustrationProvider. It returns a data URI of
// the first inline image, or "" when the model answered without one.
func (g *Gemini) Illustrate(ctx context.Context, wisdom domain.WisdomEntry) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.imageModel, genai.Text(illustrationPrompt(wisdom)), nil)
	if err != nil {
		return "", g.mapError("illustrate", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}

		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = "image/png"
		}

		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
	}

	g.logger.DebugContext(ctx, "no inline image in response")

	return "", nil
}

// mapError wraps an SDK error. Rate limits and server errors get an
// UnavailableError cause.
func (g *Gemini) mapError(op string, err error) error {
	if apiErr, ok := asAPIError(err); ok &&
		(apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError) {
		return domain.NewProviderError(geminiProvider, op,
			domain.NewUnavailableError(geminiProvider, apiErr.Message))
	}

	return domain.NewProviderError(geminiProvider, op, mapClientError(err, geminiProvider))
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}

	return genai.APIError{}, false
}

// Name implements ports.HealthChecker.
func (g *Gemini) Name() string {
	return geminiProvider
}

// Check reports the provider unhealthy while its circuit breaker is open.
func (g *Gemini) Check(context.Context) error {
	if g.client != nil && g.client.CircuitState() == clients.StateOpen {
		return clients.ErrCircuitOpen
	}

	return nil
}
