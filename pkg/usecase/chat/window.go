package chat

import (
	"unicode/utf8"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultWindowSize is the character budget for the messages sent with each turn
const DefaultWindowSize = 2048

// BuildWindow selects the most recent part of the conversation that fits in
// budget characters and returns it as chat messages, prefixed with the system
// directive. conversation alternates user and assistant turns, starting and
// ending with a user turn.
func BuildWindow(conversation []string, budget int) ([]model.Message, error) {
	if len(conversation)%2 != 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "conversation must have an odd number of turns",
			goerr.V("turns", len(conversation)))
	}
	if budget <= 0 {
		budget = DefaultWindowSize
	}

	// Walk from the newest turn backwards; the newest turn is always the user's.
	total := 0
	first := len(conversation)
	for i := len(conversation) - 1; i >= 0; i-- {
		total += utf8.RuneCountInString(conversation[i])
		if total > budget {
			break
		}
		first = i
	}

	messages := make([]model.Message, 0, len(conversation)-first+1)
	messages = append(messages, model.Message{Role: model.RoleSystem, Content: model.SystemDirective})
	for i := first; i < len(conversation); i++ {
		role := model.RoleUser
		if (len(conversation)-1-i)%2 == 1 {
			role = model.RoleAssistant
		}
		messages = append(messages, model.Message{Role: role, Content: conversation[i]})
	}

	return messages, nil
}
