package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/prompts"

	"github.com/aguxez/nutricalc/models"
)

// NutritionAgent comments on the meal being composed, remembering the last
// few exchanges.
type NutritionAgent struct {
	chain        *chains.LLMChain
	bufferMemory *memory.ConversationWindowBuffer
	state        *models.StateManager
	logger       *slog.Logger
}

type MealAdvice struct {
	Summary     string   `json:"summary"`
	Balance     string   `json:"balance"`
	Suggestions []string `json:"suggestions"`
}

const promptTemplate = `
	You are a dietitian reviewing a meal that was composed from a food table.
	Nutrient values are already scaled to the listed weights; the last row is the
	meal total.

	{{.CombinedInput}}

	Describe the meal briefly, comment on the balance of protein, fat and
	carbohydrate and on the salt content, and suggest at most three changes that
	use foods from the catalog where possible. Do not recompute the totals.

	Stick to this JSON format for the output.

	{
		"summary": string, // One or two sentences about the meal.
		"balance": string, // Comment on macronutrient balance and salt.
		"suggestions": [string] // Up to three concrete changes.
	}
	`

func NewNutritionAgent(llm llms.Model, state *models.StateManager, memoryWindow int, logger *slog.Logger) *NutritionAgent {
	// Only the last memoryWindow exchanges are kept.
	bufferMem := memory.NewConversationWindowBuffer(memoryWindow)

	chain := chains.NewLLMChain(
		llm,
		prompts.NewPromptTemplate(promptTemplate, []string{"CombinedInput"}),
	)

	return &NutritionAgent{
		chain:        chain,
		bufferMemory: bufferMem,
		state:        state,
		logger:       logger,
	}
}

// AdviseMeal asks the model about the current meal. An empty meal is
// rejected before any call is made.
func (n *NutritionAgent) AdviseMeal(ctx context.Context) (MealAdvice, error) {
	foods, meal := n.state.GetCurrentState()
	if len(meal) <= 1 {
		return MealAdvice{}, ErrEmptyMeal
	}

	history, err := n.bufferMemory.LoadMemoryVariables(ctx, map[string]any{})
	if err != nil {
		return MealAdvice{}, fmt.Errorf("loading memory variables: %w", err)
	}

	combinedInput := fmt.Sprintf("Catalog (per 100 g):\n%s\nMeal:\n%s\nHistory: %v",
		describeFoods(foods), describeMeal(meal), history["history"])

	input := map[string]any{
		"CombinedInput": combinedInput,
	}

	result, err := chains.Call(ctx, n.chain, input)
	if err != nil {
		return MealAdvice{}, fmt.Errorf("calling chain: %w", err)
	}

	if err := n.bufferMemory.SaveContext(ctx, input, result); err != nil {
		n.logger.Warn("saving advisor memory", "error", err)
	}

	responseText, ok := result["text"].(string)
	if !ok {
		return MealAdvice{}, fmt.Errorf("unexpected chain output %T", result["text"])
	}

	var advice MealAdvice
	if err := json.Unmarshal([]byte(stripMarkup(responseText)), &advice); err != nil {
		return MealAdvice{}, fmt.Errorf("unmarshalling response: %w", err)
	}
	return advice, nil
}

func describeFoods(foods []models.Food) string {
	var b strings.Builder
	for _, f := range foods {
		fmt.Fprintf(&b, "- %s: %s\n", f.Name, describeProfile(f.Profile))
	}
	return b.String()
}

func describeMeal(rows []models.MealLineItem) string {
	var b strings.Builder
	for _, it := range rows {
		fmt.Fprintf(&b, "- %s %.1fg: %s", it.FoodName, it.WeightG, describeProfile(it.Nutrients))
		if it.Note != "" {
			fmt.Fprintf(&b, " (%s)", it.Note)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func describeProfile(p models.NutrientProfile) string {
	return fmt.Sprintf("%.1f kcal, protein %.1fg, fat %.1fg, carbohydrate %.1fg, salt %.2fg",
		p.Energy, p.Protein, p.Fat, p.Carbohydrate, p.Salt)
}

func stripMarkup(s string) string {
	noLineBreaks := strings.ReplaceAll(s, "\n", "")
	noJsonMarkupStart := strings.ReplaceAll(noLineBreaks, "```json", "")
	noJsonMarkupEnd := strings.ReplaceAll(noJsonMarkupStart, "```", "")

	return strings.TrimSpace(noJsonMarkupEnd)
}
