package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/models"
)

// ErrOffTopic is returned when the model declines to answer because the
// question is not about the household's energy.
var ErrOffTopic = errors.New("question is not about home energy")

type GPTResponse struct {
	OnTopic bool   `json:"on_topic"`
	Answer  string `json:"answer"`
	Topic   string `json:"topic"`
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GPTFallback answers questions the rule table does not recognise.
type GPTFallback struct {
	client      chatCompleter
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewGPTFallback(apiKey string, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTFallback {
	return newGPTFallback(openai.NewClient(apiKey), model, maxTokens, temperature, logger)
}

func newGPTFallback(client chatCompleter, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTFallback {
	return &GPTFallback{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (c *GPTFallback) Answer(ctx context.Context, question string, snap models.Snapshot) (string, error) {
	prompt := fmt.Sprintf(`You are WattGuardian, a smart home energy assistant.
Household state:
%s
Answer the user's question in at most three sentences using only the state above.
If the question is not about home energy, set on_topic to false.

Return the response as a JSON object with this structure:
{
    "on_topic": true,
    "answer": "short_answer",
    "topic": "usage|savings|devices|general"
}

Question: %s`, describe(snap), question)

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get GPT response", zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices returned")
	}

	var gptResponse GPTResponse
	response := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(response), &gptResponse); err != nil {
		c.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", response))
		return "", fmt.Errorf("parse chat completion: %w", err)
	}
	if !gptResponse.OnTopic || strings.TrimSpace(gptResponse.Answer) == "" {
		return "", ErrOffTopic
	}
	return strings.TrimSpace(gptResponse.Answer), nil
}

func describe(snap models.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- total usage today: %.2f kWh\n", snap.TotalUsage)
	if snap.Budget != nil {
		fmt.Fprintf(&b, "- daily budget: %.2f kWh\n", *snap.Budget)
	} else {
		b.WriteString("- daily budget: not set\n")
	}
	for _, a := range snap.Appliances {
		state := "off"
		if a.IsOn {
			state = "on"
		}
		fmt.Fprintf(&b, "- %s (%s, %s): %.2f kW, %.2f kWh today\n", a.Name, a.Location, state, a.CurrentPowerKW, a.DailyUsage)
	}
	return b.String()
}
