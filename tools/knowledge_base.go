package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

type KnowledgeBaseInput struct{}

type qaPair struct {
	Question *string `json:"question"`
	Answer   *string `json:"answer"`
}

// KnowledgeBase formats a JSON knowledge base file as numbered Q/A pairs.
// Problems are reported in the returned text rather than as errors so the model
// can relay them.
func KnowledgeBase(_ context.Context, path string) string {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "Error: Knowledge base file not found"
	}
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "Error: Invalid JSON in knowledge base file"
	}

	var text strings.Builder
	text.WriteString("Here is the retrieved knowledge base:\n\n")

	items, ok := doc.([]any)
	if !ok {
		pretty, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Fprintf(&text, "Knowledge base content: %s\n\n", pretty)
		return text.String()
	}

	for i, item := range items {
		n := i + 1
		question := fmt.Sprintf("Item %d", n)
		answer := fmt.Sprint(item)
		if _, isObject := item.(map[string]any); isObject {
			question, answer = "Unknown question", "Unknown answer"
			raw, _ := json.Marshal(item)
			var pair qaPair
			if json.Unmarshal(raw, &pair) == nil {
				if pair.Question != nil {
					question = *pair.Question
				}
				if pair.Answer != nil {
					answer = *pair.Answer
				}
			}
		}
		fmt.Fprintf(&text, "Q%d: %s\n", n, question)
		fmt.Fprintf(&text, "A%d: %s\n\n", n, answer)
	}
	return text.String()
}
