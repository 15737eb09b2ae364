package fheai

import (
	"fmt"
	"time"
)

// AIModel is a selectable answering model.
type AIModel struct {
	ID    uint64
	Label string
}

// AIModels are the models offered to users.
var AIModels = []AIModel{
	{ID: 1, Label: "GPT-5"},
	{ID: 2, Label: "Grok 4"},
	{ID: 3, Label: "Claude 4.5"},
	{ID: 4, Label: "Llama Vision"},
}

// DefaultModel is selected when none is given.
const DefaultModel uint64 = 1

// ResponseText is the placeholder answer of the simulated model.
const ResponseText = "ai model is thingking..."

// DecryptWindowDays is the validity of a decrypt authorization.
const DecryptWindowDays = 5

// ModelLabel returns the display name of a model id.
func ModelLabel(id uint64) string {
	for _, m := range AIModels {
		if m.ID == id {
			return m.Label
		}
	}
	return fmt.Sprintf("Model #%d", id)
}

// FormatTimestamp renders a ledger timestamp (Unix seconds) in local time.
func FormatTimestamp(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04:05")
}
