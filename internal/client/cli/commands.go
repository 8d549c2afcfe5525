package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/contentiq/internal/client/analysis"
	"github.com/dmitrijs2005/contentiq/internal/client/models"
)

func (a *App) Login(ctx context.Context) error {
	if u := a.session.Current(); u.IsLoggedIn {
		fmt.Fprintf(a.out, "Already logged in as %s\n", u.Name)
		return nil
	}

	u, err := a.session.Login(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s <%s>\n", u.Name, u.Email)
	if u.Credential().IsSimulated() {
		fmt.Fprintln(a.out, "Simulated credential: history stays on this machine.")
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out, local history cleared")
	return nil
}

// Analyze runs kind over args: a URL, a prompt, or a file path optionally
// followed by instructions.
func (a *App) Analyze(ctx context.Context, kind models.Kind, args []string) error {
	req := analysis.Request{Kind: kind}

	if kind.NeedsFile() {
		path := args[0]
		req.Instructions = strings.Join(args[1:], " ")

		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s", analysis.ErrMissingFile, path)
			}
			return err
		}
		defer f.Close()
		req.File = &analysis.File{Name: filepath.Base(path), Content: f}

		if kind == models.KindPDFRefine && req.Instructions == "" {
			text, err := GetMultiline(a.reader, "How should the document be rewritten?", a.out)
			if err != nil {
				return err
			}
			req.Instructions = text
		}
	} else {
		req.Text = strings.Join(args, " ")
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	fmt.Fprintf(a.out, "Analyzing (%s)...\n", kind)
	item, err := a.analysis.Run(ctx, req)
	if err != nil && !errors.Is(err, analysis.ErrSaveFailed) {
		return err
	}

	renderItem(a.out, item)
	return err
}

func (a *App) History(_ context.Context) error {
	items := a.history.Items()
	if len(items) == 0 {
		fmt.Fprintln(a.out, "History is empty")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(a.out, "%s  %-10s  %s  %s\n",
			it.CreatedAt().Format("2006-01-02 15:04"), it.Kind, it.ID, it.Title)
	}
	return nil
}

// Show prints one item. id may be a unique prefix.
func (a *App) Show(_ context.Context, id string) error {
	if it, ok := a.history.Get(id); ok {
		renderItem(a.out, it)
		return nil
	}

	var match []models.HistoryItem
	for _, it := range a.history.Items() {
		if strings.HasPrefix(it.ID, id) {
			match = append(match, it)
		}
	}
	switch len(match) {
	case 0:
		return fmt.Errorf("no history item %q", id)
	case 1:
		renderItem(a.out, match[0])
		return nil
	default:
		return fmt.Errorf("%q matches %d items", id, len(match))
	}
}

func (a *App) Clear(ctx context.Context) error {
	ok, err := Confirm(a.reader, "Clear local history? The remote archive is kept.", a.out)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := a.history.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Local history cleared")
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintln(a.out, "Syncing with archive...")
	if err := a.session.Sync(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "History: %d / %d\n", a.history.Len(), a.history.Limit())
	return nil
}

func (a *App) Status(_ context.Context) error {
	u := a.session.Current()
	if u.IsLoggedIn {
		fmt.Fprintf(a.out, "User:       %s <%s>\n", u.Name, u.Email)
	} else {
		fmt.Fprintln(a.out, "User:       not logged in")
	}
	fmt.Fprintf(a.out, "Credential: %s\n", a.session.Credential())

	state := "idle"
	if a.history.Syncing() {
		state = "syncing"
	} else if u.IsLoggedIn {
		state = "online"
	}
	fmt.Fprintf(a.out, "Sync:       %s\n", state)
	fmt.Fprintf(a.out, "Archive:    %d / %d (%s, %s store)\n",
		a.history.Len(), a.history.Limit(), a.config.ArchiveBackend, a.config.StoreBackend)
	fmt.Fprintf(a.out, "Time:       %s\n", time.Now().Format(time.TimeOnly))
	return nil
}
