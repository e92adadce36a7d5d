package llmclient

import (
	"encoding/json"
	"fmt"
)

// The completion service is known to answer in exactly two shapes: the
// chat-completion envelope and the older plain-completion envelope. Each gets
// its own decoder, selected by the payload's "object" discriminant.

type chatCompletionShape struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type textCompletionShape struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Content string `json:"content"`
}

// decodeCompletion extracts the assistant text from a completion payload.
func decodeCompletion(body []byte) (string, error) {
	var probe struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", fmt.Errorf("decode completion envelope: %w", err)
	}

	switch probe.Object {
	case "", "chat.completion":
		var cr chatCompletionShape
		if err := json.Unmarshal(body, &cr); err != nil {
			return "", fmt.Errorf("decode chat completion: %w", err)
		}
		if len(cr.Choices) == 0 {
			return "", fmt.Errorf("no response choices from completion service")
		}
		return cr.Choices[0].Message.Content, nil
	case "text_completion":
		var tr textCompletionShape
		if err := json.Unmarshal(body, &tr); err != nil {
			return "", fmt.Errorf("decode text completion: %w", err)
		}
		if len(tr.Choices) > 0 {
			return tr.Choices[0].Text, nil
		}
		return tr.Content, nil
	default:
		return "", fmt.Errorf("unknown completion payload shape %q", probe.Object)
	}
}
