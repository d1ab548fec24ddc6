package feedback

import "github.com/abhisek/signcoach/internal/llm"

// Schema is the structure requested from the model.
var Schema = &llm.Schema{
	Name:        "sign-feedback",
	Description: "Short coaching note after a traffic sign recognition mistake",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"meaning": map[string]any{
				"type":        "string",
				"description": "What the sign means, in at most two sentences",
			},
			"error_reason": map[string]any{
				"type":        "string",
				"description": "Why the mistake probably happened, in at most two sentences",
			},
			"real_example": map[string]any{
				"type":        "string",
				"description": "A real driving situation where the sign appears",
			},
			"mnemonic": map[string]any{
				"type":        "string",
				"description": "A memorable phrase or trick for the sign",
			},
		},
		"required":             []any{"meaning", "error_reason", "real_example", "mnemonic"},
		"additionalProperties": false,
	},
}
