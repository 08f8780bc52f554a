package agent

import (
	"context"
	"fmt"

	"github.com/Bram-diederik/ai-linux-system-info/internal/errors"
	"github.com/Bram-diederik/ai-linux-system-info/internal/ui"
	"github.com/Bram-diederik/ai-linux-system-info/internal/update"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// UpdateScript replaces this binary with the configured release. The
// restriction is re-checked and printed whether or not the update went
// through; a failed check after installing doesn't undo the update.
func (a *Agent) UpdateScript(ctx context.Context) error {
	res, err := a.Update(ctx, update.Options{
		BaseURL:    a.Config.UpdateBaseURL,
		Version:    a.Config.UpdateVersion,
		Executable: a.Executable,
		Store:      a.store(),
		Tag:        a.Config.Tag,
		Runner:     a.Runner,
		Now:        a.Now,
		Log:        a.Log,
	})
	if res == nil {
		return err
	}

	re := a.renderer()
	ok := re.NewStyle().Foreground(ui.ColorSuccess)
	warn := re.NewStyle().Foreground(ui.ColorWarning)
	muted := re.NewStyle().Foreground(ui.ColorMuted)

	if err == nil {
		fmt.Fprintf(a.Stdout, "%s Updated to %s\n", ok.Render(ui.SymbolSuccess), res.Version)
		fmt.Fprintf(a.Stdout, "  %s\n", muted.Render("previous binary: "+res.Backup))
	}
	if res.PostVerifyErr != nil {
		fmt.Fprintf(a.Stdout, "%s Restriction check after update: %s\n", warn.Render(ui.SymbolWarning), restrictionSummary(res))
		fmt.Fprintf(a.Stdout, "  %s\n", muted.Render("Re-run deploy from the operator machine"))
	} else {
		fmt.Fprintf(a.Stdout, "%s Restriction verified\n", ok.Render(ui.SymbolSuccess))
	}
	return err
}

// restrictionSummary is the status read after an update, or the reason
// there isn't one.
func restrictionSummary(res *update.Result) string {
	if res.PostVerify != "" {
		return string(res.PostVerify)
	}
	if e, ok := res.PostVerifyErr.(*errors.Error); ok {
		return e.Message
	}
	return res.PostVerifyErr.Error()
}

func (a *Agent) renderer() *lipgloss.Renderer {
	re := lipgloss.NewRenderer(a.Stdout)
	if a.Plain {
		re.SetColorProfile(termenv.Ascii)
	}
	return re
}
