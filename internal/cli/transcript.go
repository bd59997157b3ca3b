package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"dlchat/internal/reconciler"
)

// signInCard is the subset of a sign-in or OAuth card needed to surface the
// sign-in link to the user.
type signInCard struct {
	Text    string `json:"text"`
	Buttons []struct {
		Type  string `json:"type"`
		Title string `json:"title"`
		Value string `json:"value"`
	} `json:"buttons"`
}

// PrintResponses writes bot responses to w in transcript form. Sign-in cards
// are rendered as a highlighted link, other attachments as a short notice.
func PrintResponses(w io.Writer, botName string, responses []reconciler.Response) {
	if botName == "" {
		botName = "Bot"
	}
	label := text.FgHiCyan.Sprint(botName + ">")

	for _, r := range responses {
		if txt := r.Text(); txt != "" {
			fmt.Fprintf(w, "%s %s\n", label, txt)
		}

		for _, att := range r.Activity.Attachments {
			if att.IsSignInCard() {
				printSignInCard(w, att.Content)
				continue
			}
			if att.ContentURL != "" {
				fmt.Fprintf(w, "%s [attachment: %s]\n", label, att.ContentURL)
			} else if att.ContentType != "" {
				fmt.Fprintf(w, "%s [attachment: %s]\n", label, att.ContentType)
			}
		}
	}
}

func printSignInCard(w io.Writer, content json.RawMessage) {
	notice := text.FgYellow.Sprint("The bot requests sign-in.")

	var card signInCard
	if err := json.Unmarshal(content, &card); err == nil {
		if card.Text != "" {
			notice = text.FgYellow.Sprint(card.Text)
		}
		for _, button := range card.Buttons {
			if strings.EqualFold(button.Type, "signin") || strings.EqualFold(button.Type, "openUrl") {
				fmt.Fprintf(w, "%s\n  %s\n", notice, button.Value)
				return
			}
		}
	}
	fmt.Fprintf(w, "%s\n", notice)
}
