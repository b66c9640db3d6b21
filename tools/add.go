package tools

import (
	"context"
	"strconv"
)

type AddInput struct {
	A float64 `json:"a" jsonschema_description:"First addend"`
	B float64 `json:"b" jsonschema_description:"Second addend"`
}

// Add returns a+b formatted without a trailing fraction for whole numbers.
func Add(_ context.Context, input AddInput) (string, error) {
	return strconv.FormatFloat(input.A+input.B, 'f', -1, 64), nil
}
