package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"pages-chatbot-platform/internal/logger"
)

// Generation parameters tuned for grounded Q&A: low temperature so answers
// stay close to the retrieved context, short cap to keep replies widget-sized.
const (
	answerTemperature     = 0.4
	answerMaxOutputTokens = 400
)

// FallbackAnswer is served when the circuit breaker has opened.
const FallbackAnswer = "I'm experiencing high demand right now. Please try again in a moment."

// Completion is one chat model reply plus its actual token usage as reported
// by the API.
type Completion struct {
	Answer       string
	PromptTokens int
	OutputTokens int
}

// GeminiClient wraps the chat model behind a circuit breaker and a local rate
// limiter so one misbehaving tenant cannot burn the shared API quota.
type GeminiClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewGeminiClient(ctx context.Context, apiKey, model string, rpm int) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if rpm <= 0 {
		rpm = 10
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), max(rpm/10, 1))

	return &GeminiClient{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: limiter,
	}, nil
}

// Complete sends one system+user prompt pair and returns the model's answer
// with actual token usage. When the breaker is open a canned fallback answer
// is returned with zero token counts instead of an error, so the chat surface
// degrades rather than failing.
func (gc *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.complete")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", gc.model))

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(answerTemperature)
		model.SetMaxOutputTokens(answerMaxOutputTokens)
		if systemPrompt != "" {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(systemPrompt)},
			}
		}

		resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
		if err != nil {
			span.SetAttributes(attribute.Bool("gemini.error", true))
			return nil, err
		}
		return resp, nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return &Completion{Answer: FallbackAnswer}, nil
		}
		return nil, fmt.Errorf("gemini completion: %w", err)
	}

	resp := result.(*genai.GenerateContentResponse)
	completion := &Completion{Answer: extractText(resp)}
	if resp.UsageMetadata != nil {
		completion.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completion.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	span.SetAttributes(
		attribute.Int("gemini.prompt_tokens", completion.PromptTokens),
		attribute.Int("gemini.output_tokens", completion.OutputTokens),
	)
	return completion, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	out := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out += string(text)
			}
		}
	}
	return out
}

func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
