package reconciler

import (
	"context"
	"time"

	"dlchat/internal/directline"
	"dlchat/pkg/logging"
	pkgstrings "dlchat/pkg/strings"
)

// DefaultMaxPolls is the default poll budget for one AwaitResponse cycle.
const DefaultMaxPolls = 10

// DefaultPollInterval is the default sleep between polls.
const DefaultPollInterval = 1 * time.Second

// quietAfterPolls is the minimum number of completed polls before the
// quiet-period heuristic may end a turn: once at least one response has been
// surfaced and a poll past this threshold yields nothing new, the turn is
// treated as complete. A heuristic, not a completeness guarantee.
const quietAfterPolls = 2

// Response is one bot activity surfaced to the caller by AwaitResponse.
type Response struct {
	// Activity is the surfaced activity, verbatim.
	Activity directline.Activity

	// SignInCard is set when the activity carries a sign-in or OAuth card
	// attachment, so callers can prompt the user to authenticate.
	SignInCard bool
}

// Text returns the response's message text.
func (r Response) Text() string {
	return r.Activity.Text
}

// Options configures one AwaitResponse cycle.
type Options struct {
	// MaxPolls is the poll budget. Defaults to DefaultMaxPolls.
	MaxPolls int

	// PollInterval is the sleep between polls. Defaults to
	// DefaultPollInterval.
	PollInterval time.Duration

	// WaitBeforeFirstPoll sleeps one interval before the first poll as well.
	// Single-message mode sets this: the send has just happened and the bot
	// cannot have answered yet. The interactive REPL polls immediately
	// instead, since the user's typing time already covers the gap.
	WaitBeforeFirstPoll bool
}

// SessionOption customizes a Session at construction.
type SessionOption func(*Session)

// WithClassifier replaces the default bot-origin classifier.
func WithClassifier(c Classifier) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.classifier = c
		}
	}
}

// Session owns the polling state for one conversation: the conversation
// handle, the watermark cursor and the set of activity IDs already surfaced
// or consumed. State never leaves the Session and is never persisted.
//
// A Session supports exactly one driver. See the package documentation for
// the concurrency model.
type Session struct {
	client     *directline.Client
	conv       *directline.Conversation
	classifier Classifier
	watermark  string
	seen       map[string]struct{}
}

// NewSession creates a Session for the given conversation.
func NewSession(client *directline.Client, conv *directline.Conversation, opts ...SessionOption) *Session {
	s := &Session{
		client:     client,
		conv:       conv,
		classifier: DefaultFromBot,
		seen:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conversation returns the session's conversation handle.
func (s *Session) Conversation() *directline.Conversation {
	return s.conv
}

// Watermark returns the current cursor. Empty means "from the beginning".
func (s *Session) Watermark() string {
	return s.watermark
}

// SeenCount returns the number of activity IDs recorded as seen.
func (s *Session) SeenCount() int {
	return len(s.seen)
}

// Send posts a message to the session's conversation and returns the
// activity ID. Empty text is rejected locally; failures are never retried.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	return s.client.SendMessage(ctx, s.conv.ID, text, s.conv.Token)
}

// Refresh exchanges the session's conversation token for a renewed one.
// The conversation ID is unchanged by backend contract.
func (s *Session) Refresh(ctx context.Context) error {
	conv, err := s.client.RefreshToken(ctx, s.conv.Token)
	if err != nil {
		return err
	}
	s.conv = conv
	return nil
}

// Seed performs one unconditional poll to drain pre-existing activities into
// the seen set and adopt the backend's current watermark, so that a later
// AwaitResponse cycle does not surface stale history as new. Seeding is
// best-effort: a transport failure leaves the session usable and is returned
// for the caller to log.
func (s *Session) Seed(ctx context.Context) error {
	fresh, err := s.PollOnce(ctx)
	if err != nil {
		logging.Debug("Reconciler", "Could not seed conversation %s: %v", s.conv.ID, err)
		return err
	}
	logging.Debug("Reconciler", "Seeded conversation %s: watermark=%q, %d activities marked seen",
		s.conv.ID, s.watermark, len(fresh))
	return nil
}

// PollOnce fetches one batch at the current watermark and returns the
// activities not seen before, in server order. Every returned activity's ID
// is recorded as seen before PollOnce returns; the same ID is never returned
// twice for the lifetime of the Session.
//
// The watermark advances to the batch's cursor whenever the backend supplies
// one, even when nothing new arrived, so the same batch is not re-fetched.
func (s *Session) PollOnce(ctx context.Context) ([]directline.Activity, error) {
	set, err := s.client.GetActivities(ctx, s.conv.ID, s.watermark, s.conv.Token)
	if err != nil {
		return nil, err
	}

	if set.Watermark != "" {
		s.watermark = set.Watermark
	}

	var fresh []directline.Activity
	for _, activity := range set.Activities {
		if _, ok := s.seen[activity.ID]; ok {
			continue
		}
		s.seen[activity.ID] = struct{}{}
		fresh = append(fresh, activity)
	}
	return fresh, nil
}

// AwaitResponse polls the conversation until bot responses arrive, the poll
// budget is exhausted, or ctx is cancelled.
//
// Surfacing rules for each fresh bot-classified activity:
//
//   - message with non-empty text, or with attachments: surfaced
//   - message with neither: consumed silently (typing/ack noise some
//     backends emit as empty messages)
//   - invoke/event: surfaced only when it carries text
//   - anything else: consumed silently
//
// A turn ends early once at least one response has been surfaced, the current
// poll produced nothing new, and more than quietAfterPolls polls have
// completed.
//
// Per-poll transport failures are logged and counted against the budget; the
// last failure is surfaced only when the budget runs out with no responses.
// An exhausted budget with no responses and no failures returns an empty,
// non-nil slice.
func (s *Session) AwaitResponse(ctx context.Context, opts Options) ([]Response, error) {
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	responses := []Response{}
	var lastErr error

	for poll := 0; poll < maxPolls; poll++ {
		if poll > 0 || opts.WaitBeforeFirstPoll {
			select {
			case <-ctx.Done():
				return responses, ctx.Err()
			case <-time.After(interval):
			}
		}

		fresh, err := s.PollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return responses, ctx.Err()
			}
			lastErr = err
			logging.Debug("Reconciler", "Poll %d/%d failed for conversation %s: %v",
				poll+1, maxPolls, s.conv.ID, err)
			continue
		}

		newFound := false
		for _, activity := range fresh {
			if !s.classifier(activity, s.client.UserID()) {
				continue
			}

			switch activity.Kind() {
			case directline.KindMessage:
				if activity.HasText() || len(activity.Attachments) > 0 {
					responses = append(responses, makeResponse(activity))
					newFound = true
					if logging.IsDebugEnabled() {
						logging.Debug("Reconciler", "Surfaced bot message (id: %s): %s",
							activity.ID, pkgstrings.Truncate(activity.Text, pkgstrings.DefaultLogTextLen))
					}
				} else if logging.IsDebugEnabled() {
					logging.Debug("Reconciler", "Consumed empty bot message (id: %s)", activity.ID)
				}
			case directline.KindInvoke, directline.KindEvent:
				if activity.HasText() {
					responses = append(responses, makeResponse(activity))
					newFound = true
				} else {
					logging.Debug("Reconciler", "Consumed bot %s activity (id: %s)", activity.Type, activity.ID)
				}
			default:
				logging.Debug("Reconciler", "Consumed bot %s activity (id: %s)", activity.Type, activity.ID)
			}
		}

		if len(responses) > 0 && !newFound && poll > quietAfterPolls {
			break
		}
	}

	if len(responses) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return responses, nil
}

func makeResponse(activity directline.Activity) Response {
	r := Response{Activity: activity}
	for _, att := range activity.Attachments {
		if att.IsSignInCard() {
			r.SignInCard = true
			break
		}
	}
	return r
}
