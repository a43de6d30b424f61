// Package assistant answers free-form visitor questions about a place using
// an OpenAI-compatible chat completion endpoint.
//
// The service never surfaces provider failures to callers. Any error, timeout
// or empty completion is logged and replaced by FallbackText.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/golocal/internal/tracing"
)

// FallbackText is returned whenever no usable answer could be produced.
const FallbackText = "Desculpe, não consegui obter uma resposta agora. Tente novamente em alguns instantes."

// Defaults applied by NewService.
const (
	DefaultModel     = openai.GPT4oMini
	DefaultTimeout   = 20 * time.Second
	DefaultMaxTokens = 400

	// MaxQuestionLength is the longest accepted question, in runes.
	MaxQuestionLength = 500
)

// Validation errors.
var (
	ErrEmptyQuestion   = errors.New("question is required")
	ErrQuestionTooLong = fmt.Errorf("question exceeds %d characters", MaxQuestionLength)
	errEmptyCompletion = errors.New("completion had no content")
	errNotConfigured   = errors.New("assistant not configured")
)

// Completer is the subset of *openai.Client used by the service.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the chat completion client.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// NewClient builds an OpenAI client from cfg. It returns nil when no API key
// is configured; a Service with a nil client always falls back.
func NewClient(cfg Config) Completer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return openai.NewClientWithConfig(oc)
}

// Answer is the reply shown to the visitor.
type Answer struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// Service asks questions about places.
type Service struct {
	client    Completer
	model     string
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger
	metrics   *Metrics
}

// NewService creates a service. client may be nil.
func NewService(client Completer, cfg Config, logger *slog.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client:    client,
		model:     cfg.Model,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
		metrics:   metrics,
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultMaxTokens
	}
	return s
}

// Configured reports whether a provider client is available.
func (s *Service) Configured() bool {
	return s.client != nil
}

// ValidateQuestion trims q and checks it is non-empty and within bounds.
func ValidateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ErrEmptyQuestion
	}
	if utf8.RuneCountInString(q) > MaxQuestionLength {
		return "", ErrQuestionTooLong
	}
	return q, nil
}

// Ask answers question about the place described by pc.
//
// The returned error is non-nil only for an invalid question or when ctx
// itself was cancelled by the caller. Every provider-side failure produces
// a fallback Answer and a nil error.
func (s *Service) Ask(ctx context.Context, pc PlaceContext, question string) (Answer, error) {
	question, err := ValidateQuestion(question)
	if err != nil {
		return Answer{}, err
	}

	ctx, endSpan := tracing.StartSpan(ctx, "assistant.ask")
	tracing.SetAttributes(ctx,
		attribute.String("assistant.model", s.model),
		attribute.String("place.name", pc.Name),
	)
	start := time.Now()

	text, err := s.complete(ctx, pc, question)
	if s.client != nil {
		s.metrics.observeLatency(time.Since(start))
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.metrics.incRequest(outcomeCancelled)
			endSpan(nil)
			return Answer{}, ctxErr
		}
		reason := fallbackReason(err)
		s.metrics.incRequest(outcomeFallback)
		s.metrics.incFallback(reason)
		if reason != reasonUnconfigured {
			s.logger.WarnContext(ctx, "assistant request failed, returning fallback",
				slog.String("reason", reason),
				slog.String("place", pc.Name),
				slog.String("error", err.Error()),
			)
		}
		tracing.AddEvent(ctx, "fallback", attribute.String("reason", reason))
		endSpan(err)
		return Answer{Text: FallbackText, Fallback: true}, nil
	}

	s.metrics.incRequest(outcomeAnswered)
	endSpan(nil)
	return Answer{Text: text}, nil
}

func (s *Service) complete(ctx context.Context, pc PlaceContext, question string) (string, error) {
	if s.client == nil {
		return "", errNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:     s.model,
		Messages:  BuildMessages(pc, question),
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errNotConfigured):
		return reasonUnconfigured
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.Is(err, errEmptyCompletion):
		return reasonEmpty
	default:
		return reasonError
	}
}
