package output

import (
	"fmt"
	"unicode/utf8"
)

// CharsPerToken approximates how many characters of source make one model
// token.
const CharsPerToken = 4.0

// DefaultBudget is the context window used for usage percentages.
const DefaultBudget = 128000

// EstimateTokens returns an approximate token count for text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(float64(utf8.RuneCountInString(text))/CharsPerToken + 0.5)
}

// FormatTokenCount renders counts of 1000 or more as "X.Xk".
func FormatTokenCount(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	return fmt.Sprintf("%.1fk", float64(tokens)/1000)
}

// BudgetUsage returns tokens as a percentage of budget. A non-positive
// budget means DefaultBudget.
func BudgetUsage(tokens, budget int) float64 {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return float64(tokens) / float64(budget) * 100
}
