package acl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/clients"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
)

// OracleConfig configures an Oracle.
type OracleConfig struct {
	// Client is the HTTP client; its BaseURL points at the oracle service.
	Client *clients.Client

	// Name identifies the provider in errors, logs and health output.
	Name string

	Logger *slog.Logger
}

// Oracle implements all three providers against a plain JSON HTTP service:
//
//	GET  /wisdom        -> wisdomDTO
//	POST /explanation   wisdomDTO -> {"text": "..."}
//	POST /illustration  wisdomDTO -> {"imageUrl": "..."} or 204
//	GET  /health
type Oracle struct {
	BaseAdapter
	logger *slog.Logger
}

// NewOracle creates an oracle adapter. Panics if Client is nil.
func NewOracle(cfg OracleConfig) *Oracle {
	if cfg.Client == nil {
		panic("Oracle: Client is required")
	}

	name := cfg.Name
	if name == "" {
		name = "oracle"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Oracle{
		BaseAdapter: NewBaseAdapter(cfg.Client, name),
		logger:      logger.With(slog.String("component", "acl.Oracle")),
	}
}

// wisdomDTO is the oracle's wire shape, shared with the stored record layout.
type wisdomDTO struct {
	Quote               string `json:"quote"`
	Source              string `json:"source"`
	Topic               string `json:"topic"`
	BriefInterpretation string `json:"briefInterpretation"`
}

type explanationDTO struct {
	Text string `json:"text"`
}

type illustrationDTO struct {
	ImageURL string `json:"imageUrl"`
}

func toWisdomDTO(w domain.WisdomEntry) wisdomDTO {
	return wisdomDTO{
		Quote:               w.Quote,
		Source:              w.Source,
		Topic:               w.Topic,
		BriefInterpretation: w.BriefInterpretation,
	}
}

// translate trims the external fields and rejects incomplete answers.
func (d *wisdomDTO) translate() (*domain.WisdomEntry, error) {
	w := &domain.WisdomEntry{
		Quote:               strings.TrimSpace(d.Quote),
		Source:              strings.TrimSpace(d.Source),
		Topic:               strings.TrimSpace(d.Topic),
		BriefInterpretation: strings.TrimSpace(d.BriefInterpretation),
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}

	return w, nil
}

// Generate implements ports.WisdomProvider.
func (o *Oracle) Generate(ctx context.Context) (*domain.WisdomEntry, error) {
	const op = "generate"

	o.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", "/wisdom"))

	resp, err := o.Get(ctx, "/wisdom", op)
	if err != nil {
		return nil, err
	}

	dto, err := DecodeResponse[wisdomDTO](resp.Body)
	if err != nil {
		return nil, domain.NewProviderError(o.Provider(), op, err)
	}

	wisdom, err := dto.translate()
	if err != nil {
		return nil, domain.NewProviderError(o.Provider(), op, err)
	}

	o.logger.DebugContext(ctx, "wisdom received", slog.String("topic", wisdom.Topic))

	return wisdom, nil
}

// Explain implements ports.ExplanationProvider.
func (o *Oracle) Explain(ctx context.Context, wisdom domain.WisdomEntry) (string, error) {
	const op = "explain"

	resp, err := o.Post(ctx, "/explanation", toWisdomDTO(wisdom), op)
	if err != nil {
		return "", err
	}

	dto, err := DecodeResponse[explanationDTO](resp.Body)
	if err != nil {
		return "", domain.NewProviderError(o.Provider(), op, err)
	}

	text := strings.TrimSpace(dto.Text)
	if text == "" {
		return "", domain.NewProviderError(o.Provider(), op, ErrEmptyResponse)
	}

	return text, nil
}

// Illustrate implements ports.IllustrationProvider. A 204 answer means the
// oracle has no image for this wisdom.
func (o *Oracle) Illustrate(ctx context.Context, wisdom domain.WisdomEntry) (string, error) {
	const op = "illustrate"

	resp, err := o.Post(ctx, "/illustration", toWisdomDTO(wisdom), op)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusNoContent {
		_ = resp.Body.Close()

		return "", nil
	}

	dto, err := DecodeResponse[illustrationDTO](resp.Body)
	if err != nil {
		return "", domain.NewProviderError(o.Provider(), op, err)
	}

	return strings.TrimSpace(dto.ImageURL), nil
}

// Name implements ports.HealthChecker.
func (o *Oracle) Name() string {
	return o.Provider()
}

// Check implements ports.HealthChecker.
func (o *Oracle) Check(ctx context.Context) error {
	resp, err := o.client.Get(ctx, "/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s health returned status %d", o.Provider(), resp.StatusCode)
	}

	return nil
}
