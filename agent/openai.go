package agent

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// NewOpenAIModel connects to an OpenAI compatible endpoint such as OpenRouter.
func NewOpenAIModel(baseURL, token, model string) (*openai.LLM, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	return llm, nil
}
