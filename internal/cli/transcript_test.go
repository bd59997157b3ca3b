package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"dlchat/internal/directline"
	"dlchat/internal/reconciler"
)

func TestPrintResponsesText(t *testing.T) {
	var buf strings.Builder

	PrintResponses(&buf, "Helpdesk", []reconciler.Response{
		{Activity: directline.Activity{Type: "message", Text: "Hello!"}},
		{Activity: directline.Activity{Type: "message", Text: "How can I help?"}},
	})

	out := buf.String()
	if !strings.Contains(out, "Helpdesk>") {
		t.Errorf("bot name missing from transcript: %q", out)
	}
	if !strings.Contains(out, "Hello!") || !strings.Contains(out, "How can I help?") {
		t.Errorf("response text missing from transcript: %q", out)
	}
}

func TestPrintResponsesDefaultBotName(t *testing.T) {
	var buf strings.Builder

	PrintResponses(&buf, "", []reconciler.Response{
		{Activity: directline.Activity{Type: "message", Text: "hi"}},
	})

	if !strings.Contains(buf.String(), "Bot>") {
		t.Errorf("default bot name missing: %q", buf.String())
	}
}

func TestPrintResponsesSignInCard(t *testing.T) {
	card, err := json.Marshal(map[string]interface{}{
		"text": "Please sign in to continue",
		"buttons": []map[string]string{
			{"type": "signin", "title": "Sign in", "value": "https://login.example.test/abc"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	PrintResponses(&buf, "Bot", []reconciler.Response{
		{
			Activity: directline.Activity{
				Type: "message",
				Attachments: []directline.Attachment{
					{ContentType: "application/vnd.microsoft.card.signin", Content: card},
				},
			},
			SignInCard: true,
		},
	})

	out := buf.String()
	if !strings.Contains(out, "Please sign in to continue") {
		t.Errorf("card text missing: %q", out)
	}
	if !strings.Contains(out, "https://login.example.test/abc") {
		t.Errorf("sign-in link missing: %q", out)
	}
}

func TestPrintResponsesAttachmentNotice(t *testing.T) {
	var buf strings.Builder

	PrintResponses(&buf, "Bot", []reconciler.Response{
		{Activity: directline.Activity{
			Type: "message",
			Text: "Here is the diagram",
			Attachments: []directline.Attachment{
				{ContentType: "image/png", ContentURL: "https://cdn.example.test/diagram.png"},
			},
		}},
	})

	out := buf.String()
	if !strings.Contains(out, "https://cdn.example.test/diagram.png") {
		t.Errorf("attachment URL missing: %q", out)
	}
}
