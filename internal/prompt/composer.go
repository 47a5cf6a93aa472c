// Package prompt builds the message pair sent to the completion endpoint.
package prompt

import (
	"strings"

	"videorag/internal/domain"
)

// DefaultInstruction frames the assistant's role ahead of the retrieved context.
const DefaultInstruction = "You are a helpful assistant. Answer questions based on these chunks of transcript:"

// Composer joins retrieved chunks into the system message.
type Composer struct {
	instruction string
}

func NewComposer(instruction string) *Composer {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	return &Composer{instruction: instruction}
}

// Compose puts the instruction and the chunks, joined by single spaces in
// the order given, into the system message. The question is the user
// message verbatim. With no chunks the context line is empty.
func (c *Composer) Compose(question string, chunks []string) domain.Prompt {
	return domain.Prompt{
		System: c.instruction + "\n" + strings.Join(chunks, " "),
		User:   question,
	}
}
