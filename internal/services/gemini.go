package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Audio is the payload handed to the oracle.
type Audio struct {
	Name     string
	MIMEType string
	Data     []byte
}

// OracleClient invokes the external analysis model. Implementations make at
// most the configured number of attempts and give no other guarantees.
type OracleClient interface {
	Invoke(ctx context.Context, audio Audio, instruction string) (string, error)
}

type GeminiOptions struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
}

type geminiService struct {
	client      *genai.Client
	modelName   string
	timeout     time.Duration
	limiter     *rate.Limiter
	maxAttempts int
	logger      *zap.Logger
}

func NewGeminiService(opts GeminiOptions, logger *zap.Logger) (OracleClient, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &geminiService{
		client:      client,
		modelName:   model,
		timeout:     opts.Timeout,
		limiter:     newRequestLimiter(opts.RequestsPerMinute),
		maxAttempts: max(opts.MaxAttempts, 1),
		logger:      logger,
	}, nil
}

// newRequestLimiter returns nil (unlimited) for a non-positive rpm.
func newRequestLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), max(rpm/10, 1))
}

// Invoke implements OracleClient.
func (g *geminiService) Invoke(ctx context.Context, audio Audio, instruction string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.generate(ctx, audio, instruction)
		if err == nil {
			return text, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if attempt < g.maxAttempts {
			g.logger.Warn("gemini attempt failed, retrying",
				zap.String("file", audio.Name),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
	}

	if g.maxAttempts == 1 {
		return "", lastErr
	}
	return "", fmt.Errorf("failed after %d attempts: %w", g.maxAttempts, lastErr)
}

func (g *geminiService) generate(ctx context.Context, audio Audio, instruction string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(audio.Data, audio.MIMEType),
		}, genai.RoleUser),
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w (nil response)", ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("gemini response received",
		zap.String("file", audio.Name),
		zap.Int("chars", len(text)),
		zap.Duration("latency", time.Since(start)))

	return text, nil
}
