package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/aguxez/nutricalc/logging"
	"github.com/aguxez/nutricalc/models"
)

// stubModel answers every prompt with the next canned response.
type stubModel struct {
	responses []string
	prompts   []string
	err       error
}

func (s *stubModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	var prompt strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if text, ok := p.(llms.TextContent); ok {
				prompt.WriteString(text.Text)
			}
		}
	}
	s.prompts = append(s.prompts, prompt.String())

	resp := s.responses[0]
	s.responses = s.responses[1:]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: resp}}}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func riceState(t *testing.T) *models.StateManager {
	t.Helper()
	sm := models.NewStateManager()
	require.NoError(t, sm.RegisterFood("Rice", models.NutrientProfile{Energy: 168, Protein: 2.5, Fat: 0.3, Carbohydrate: 37.1}))
	_, err := sm.AddToMeal("Rice", 150, "steamed")
	require.NoError(t, err)
	return sm
}

func TestAdviseMeal(t *testing.T) {
	t.Parallel()

	llm := &stubModel{responses: []string{
		"```json\n{\"summary\": \"A rice bowl.\", \"balance\": \"Low in protein.\", \"suggestions\": [\"Add tofu\"]}\n```",
		`{"summary": "Still rice.", "balance": "Same.", "suggestions": []}`,
	}}
	a := NewNutritionAgent(llm, riceState(t), 5, logging.Discard())

	advice, err := a.AdviseMeal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MealAdvice{Summary: "A rice bowl.", Balance: "Low in protein.", Suggestions: []string{"Add tofu"}}, advice)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Rice 150.0g: 252.0 kcal")
	assert.Contains(t, llm.prompts[0], "(steamed)")
	assert.Contains(t, llm.prompts[0], "Total 150.0g")

	_, err = a.AdviseMeal(context.Background())
	require.NoError(t, err)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "A rice bowl.", "previous exchange is remembered")
}

func TestAdviseMealEmpty(t *testing.T) {
	t.Parallel()

	llm := &stubModel{}
	a := NewNutritionAgent(llm, models.NewStateManager(), 5, logging.Discard())

	_, err := a.AdviseMeal(context.Background())
	require.ErrorIs(t, err, ErrEmptyMeal)
	assert.Empty(t, llm.prompts)
}

func TestAdviseMealErrors(t *testing.T) {
	t.Parallel()

	failing := &stubModel{err: errors.New("rate limited")}
	_, err := NewNutritionAgent(failing, riceState(t), 5, logging.Discard()).AdviseMeal(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	garbage := &stubModel{responses: []string{"not json"}}
	_, err = NewNutritionAgent(garbage, riceState(t), 5, logging.Discard()).AdviseMeal(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshalling response")
}
