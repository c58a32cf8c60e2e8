// Package tui is the full-screen terminal frontend: a sidebar of editable
// items per app, up to two editor panes, toast notifications, and confirm
// modals. All durable state lives in the app sessions and the store; the TUI
// only routes keys and renders.
package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/app"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/config"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/expert"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/formatter"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/history"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/store"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

// Run starts the editor and blocks until the user quits.
func Run(cfg *config.Config, log *slog.Logger) error {
	if err := cfg.RequireSite(); err != nil {
		return err
	}

	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference()

	client, err := expert.NewClient(expert.Options{
		BaseURL:       cfg.Site.BaseURL,
		Cookie:        cfg.Site.Cookie,
		UserAgent:     cfg.Site.UserAgent,
		FetchTimeout:  cfg.Tuning.LoadTimeout,
		SubmitTimeout: cfg.Tuning.SaveTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("site client: %w", err)
	}

	st := store.Open(cfg.StateScopeDir(), log)

	// A dead journal loses history, not edits; the editor still runs.
	journal, err := history.Open(context.Background(), cfg.StateScopeDir())
	if err != nil {
		log.Warn("history journal unavailable", "err", err)
		journal = nil
	} else {
		defer journal.Close()
	}

	wake := make(chan struct{}, 1)
	toasts := toast.NewManager(toast.Config{
		MaxVisible:      cfg.MaxToasts,
		DefaultDuration: cfg.Tuning.ToastDuration,
		EnterDelay:      cfg.Tuning.ToastEnter,
		ExitDelay:       cfg.Tuning.ToastExit,
		ReconcileWindow: cfg.Tuning.ToastReconcile,
		OnChange: func() {
			select {
			case wake <- struct{}{}:
			default:
			}
		},
	})
	defer toasts.Close()

	notify := func(kind toast.Kind, text string) {
		toasts.Notify(text, kind, 0)
	}
	fmtr := formatter.New(cfg.Formatter)

	sessions := map[model.AppID]*app.Session{}
	for _, spec := range []model.AppSpec{
		model.DefaultCSSApp(cfg.Site.CSSPath),
		model.DefaultHTMLApp(cfg.Site.HTMLPath),
	} {
		sessions[spec.ID] = app.NewSession(app.Config{
			Spec:         spec,
			Store:        st,
			Client:       client,
			Formatter:    fmtr,
			Journal:      journal,
			Notify:       notify,
			PersistDelay: cfg.Tuning.PersistDelay,
			Log:          log,
		})
	}
	// Close flushes pending snapshots; run it after the program exits, before
	// the journal closes.
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()

	m := newAppModel(cfg, log, st, sessions, toasts, wake)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
