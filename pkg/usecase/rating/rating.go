package rating

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m-mizutani/chatmem/pkg/adapter"
	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const rubric = "On the scale of 1 to 10, where 1 is purely unimportant (e.g., saying hello) " +
	"and 10 is extremely important and useful (e.g., saving mankind), rate the likely importance " +
	"of the following piece of memory (delimited by ```). Just give me the numeric rating and nothing else.\n" +
	"Memory: ```%s```\n" +
	"Rating: <number>"

// Rater scores how important a piece of memory is, from MinImportance to MaxImportance
type Rater struct {
	completer adapter.Completer
}

func New(completer adapter.Completer) *Rater {
	return &Rater{completer: completer}
}

// Rate asks the completion model for a rating at temperature 0
func (r *Rater) Rate(ctx context.Context, text string) (int, error) {
	messages := []model.Message{
		{Role: model.RoleSystem, Content: model.SystemDirective},
		{Role: model.RoleUser, Content: Prompt(text)},
	}

	reply, err := r.completer.Complete(ctx, messages, 0)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to rate memory")
	}

	rating, err := ParseRating(reply)
	if err != nil {
		return 0, err
	}

	logging.From(ctx).Debug("rated memory", "rating", rating, "reply", reply)
	return rating, nil
}

// Prompt renders the rubric for text
func Prompt(text string) string {
	return fmt.Sprintf(rubric, text)
}

// ParseRating converts a model reply into a rating. Anything but a bare
// integer within range is ErrMalformedRating.
func ParseRating(reply string) (int, error) {
	trimmed := strings.TrimSpace(reply)

	rating, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, goerr.Wrap(model.ErrMalformedRating, "rating is not an integer",
			goerr.V("reply", reply))
	}
	if rating < model.MinImportance || rating > model.MaxImportance {
		return 0, goerr.Wrap(model.ErrMalformedRating, "rating is out of range",
			goerr.V("reply", reply),
			goerr.V("min", model.MinImportance),
			goerr.V("max", model.MaxImportance))
	}

	return rating, nil
}
