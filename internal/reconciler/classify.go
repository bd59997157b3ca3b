package reconciler

import (
	"dlchat/internal/directline"
)

// Classifier decides whether an activity originated from the bot rather than
// from the user driving the conversation (or the channel itself).
//
// The default heuristic is inherited from observed backend behavior and is
// deliberately replaceable: different Direct Line deployments populate
// from.id and from.role inconsistently.
type Classifier func(activity directline.Activity, selfUserID string) bool

// DefaultFromBot classifies an activity as bot-originated when any of:
//
//   - from.role is "bot"
//   - from.id is present and differs from the caller's own user ID
//   - from.id is absent (self-originated activities always carry the
//     caller's own ID, so an anonymous sender is the bot by convention)
func DefaultFromBot(activity directline.Activity, selfUserID string) bool {
	if activity.From.Role == "bot" {
		return true
	}
	if activity.From.ID != "" {
		return activity.From.ID != selfUserID
	}
	return true
}
