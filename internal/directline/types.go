package directline

import (
	"encoding/json"
	"strings"
)

// Conversation represents a Direct Line conversation handle: a server-assigned
// opaque ID, a conversation-scoped bearer token and its validity window.
//
// A Conversation with Token set to the shared Direct Line secret and
// ExpiresIn == 0 represents "continue an existing conversation by ID without a
// per-conversation token" (see Client.ResumeConversation). That mode is
// degraded but valid: the secret authorizes all conversation operations except
// token refresh.
type Conversation struct {
	// ID is the server-assigned conversation identifier.
	ID string `json:"conversationId"`

	// Token is the conversation-scoped bearer token (or the shared secret in
	// resume mode).
	Token string `json:"token"`

	// ExpiresIn is the token validity in seconds at issue time.
	ExpiresIn int `json:"expires_in"`

	// StreamURL is the optional WebSocket streaming endpoint. Captured for
	// completeness; this client polls and never connects to it.
	StreamURL string `json:"streamUrl,omitempty"`
}

// ActivityKind classifies an activity by its wire type. Unrecognized types map
// to KindOther with the original type string preserved on the Activity.
type ActivityKind int

const (
	KindMessage ActivityKind = iota
	KindEvent
	KindInvoke
	KindTyping
	KindOther
)

// String makes ActivityKind satisfy the fmt.Stringer interface.
func (k ActivityKind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindEvent:
		return "event"
	case KindInvoke:
		return "invoke"
	case KindTyping:
		return "typing"
	default:
		return "other"
	}
}

// ChannelAccount identifies the sender of an activity. Backends populate ID
// and Role inconsistently; both may be empty.
type ChannelAccount struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Attachment is a rich content item on an activity (cards, sign-in prompts,
// media). Content is kept as raw JSON because card schemas are open-ended.
type Attachment struct {
	ContentType string          `json:"contentType"`
	Content     json.RawMessage `json:"content,omitempty"`
	ContentURL  string          `json:"contentUrl,omitempty"`
}

// IsSignInCard reports whether the attachment is a sign-in or OAuth card.
func (a Attachment) IsSignInCard() bool {
	ct := strings.ToLower(a.ContentType)
	return strings.Contains(ct, "signin") || strings.Contains(ct, "oauth")
}

// Activity is a single unit exchanged in a conversation. Activities are
// immutable once received; identity is the server-assigned ID, unique within a
// conversation.
type Activity struct {
	// ID is the server-assigned activity identifier.
	ID string `json:"id,omitempty"`

	// Type is the wire type string ("message", "event", "invoke", "typing",
	// or anything a future backend emits). Use Kind for classification; Type
	// is preserved verbatim for forward compatibility.
	Type string `json:"type"`

	From ChannelAccount `json:"from,omitempty"`

	Text string `json:"text,omitempty"`

	Speak string `json:"speak,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`

	// ChannelData carries backend-specific payload fields opaquely.
	ChannelData map[string]interface{} `json:"channelData,omitempty"`

	Timestamp string `json:"timestamp,omitempty"`
}

// Kind returns the tagged classification of the activity's wire type.
func (a *Activity) Kind() ActivityKind {
	switch a.Type {
	case "message":
		return KindMessage
	case "event":
		return KindEvent
	case "invoke":
		return KindInvoke
	case "typing":
		return KindTyping
	default:
		return KindOther
	}
}

// HasText reports whether the activity carries non-whitespace text.
func (a *Activity) HasText() bool {
	return strings.TrimSpace(a.Text) != ""
}

// ActivitySet is one batch of activities returned by a poll, in server order,
// together with the watermark cursor to use for the next poll. An empty
// watermark means the backend did not advance the cursor.
type ActivitySet struct {
	Activities []Activity `json:"activities"`
	Watermark  string     `json:"watermark,omitempty"`
}

// user is the wire shape for the optional user block on token generation and
// conversation start requests.
type user struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// tokenRequest is the body for POST /tokens/generate.
type tokenRequest struct {
	User           *user    `json:"user,omitempty"`
	TrustedOrigins []string `json:"trustedOrigins,omitempty"`
}

// startRequest is the body for POST /conversations.
type startRequest struct {
	User *user `json:"user,omitempty"`
}

// sendRequest is the body for POST /conversations/{id}/activities.
type sendRequest struct {
	Type string `json:"type"`
	Text string `json:"text"`
	From *user  `json:"from,omitempty"`
}

// sendResponse is the body returned for a posted activity.
type sendResponse struct {
	ID string `json:"id"`
}
