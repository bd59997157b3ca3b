package cli

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dlchat/internal/auth"
)

// RenderAccounts writes the cached accounts as a table. Token values are
// never rendered, only metadata.
func RenderAccounts(w io.Writer, accounts []*auth.Account) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("USER"),
		text.FgHiCyan.Sprint("TENANT"),
		text.FgHiCyan.Sprint("STATUS"),
		text.FgHiCyan.Sprint("EXPIRES"),
	})

	for _, account := range accounts {
		user := account.Username
		if user == "" {
			user = "-"
		}

		status := text.FgGreen.Sprint("valid")
		if !account.Fresh() {
			if account.RefreshToken != "" {
				status = text.FgYellow.Sprint("expired (renewable)")
			} else {
				status = text.FgRed.Sprint("expired")
			}
		}

		expires := "-"
		if !account.Expiry.IsZero() {
			expires = account.Expiry.Local().Format(time.RFC3339)
		}

		t.AppendRow(table.Row{user, account.TenantID, status, expires})
	}

	t.Render()
}
