/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"museumkiosk/internal/config"
	"museumkiosk/internal/contentapi"
	"museumkiosk/internal/crash"
	"museumkiosk/internal/export"
	"museumkiosk/internal/geometry"
	applog "museumkiosk/internal/log"
	"museumkiosk/internal/storage"
	"museumkiosk/internal/telemetry"
	"museumkiosk/internal/ui"
	"museumkiosk/internal/version"
)

const cmdTimeout = 30 * time.Second

func usage() {
	fmt.Println("Museum Kiosk")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  museumkiosk version|-v|--version          Show version")
	fmt.Println("  museumkiosk show                          Print the stored tablet configuration summary")
	fmt.Println("  museumkiosk clear                         Delete the stored configuration")
	fmt.Println("  museumkiosk history [<n>]                 List recent saves (sqlite backend)")
	fmt.Println("  museumkiosk restore [<id>|--crash]        Restore the latest backup, a history entry or the crash autosave")
	fmt.Println("  museumkiosk themes [<page>]               List themes from the content API")
	fmt.Println("  museumkiosk theme <id>                    Print a theme as received")
	fmt.Println("  museumkiosk cards                         List cards from the content API")
	fmt.Println("  museumkiosk login <user>                  Log a member in (password read from stdin)")
	fmt.Println("  museumkiosk logout                        Forget the member session")
	fmt.Println("  museumkiosk app-password                  Store the technical account password (read from stdin)")
	fmt.Println("  museumkiosk export pdf|svg|png <out>      Export the stored layout as labelled boxes")
	fmt.Println("  museumkiosk schema                        Print the JSON schema of the stored configuration")
	fmt.Println("  museumkiosk ui [--visitor] [<themeId>]    Launch the kiosk window (build with -tags fyne)")
}

type app struct {
	cfg     config.AppConfig
	store   *storage.TabletStore
	api     *contentapi.Client
	closeFn func() error
	l       *slog.Logger
}

func (a *app) viewport() geometry.Size {
	return geometry.Sz(float64(a.cfg.General.ViewportWidth), float64(a.cfg.General.ViewportHeight))
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func main() {
	cfg, cfgPath, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not fully loaded, using defaults", slog.String("path", cfgPath), slog.Any("err", cfgErr))
	}

	args := os.Args
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Museum Kiosk")
		fmt.Println(version.String())
		return
	case "help", "-h", "--help":
		usage()
		return
	}

	telemetry.NewDefault(telemetry.FromConfig(cfg.Telemetry))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Default().Flush(ctx)
		telemetry.Default().Close()
	}()

	slot, closeSlot, err := storage.OpenSlot(cfg.Storage.Backend, cfg.Storage.Dir, cfg.Storage.BackupKeep)
	if err != nil {
		fail(l, "open storage failed", err)
	}
	target := &crash.Target{Dir: cfg.Storage.Dir, Slot: slot}
	defer crash.Recover(target)

	a := &app{
		cfg:     cfg,
		store:   storage.NewTabletStore(slot, storage.WithHistoryKeep(cfg.Storage.HistoryKeep)),
		api:     contentapi.NewFromConfig(cfg.ContentAPI),
		closeFn: closeSlot,
		l:       l,
	}
	defer func() { _ = a.closeFn() }()
	a.adoptLegacyToken()

	l.Debug("start", slog.String("cmd", args[1]), slog.String("storage", cfg.Storage.Dir))
	if err := a.run(args[1], args[2:], target); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		fail(l, args[1]+" failed", err)
	}
}

var errUsage = errors.New("usage")

func (a *app) run(cmd string, args []string, target *crash.Target) error {
	ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
	defer cancel()
	a.l = applog.WithOperation(a.l, cmd)
	switch cmd {
	case "show":
		return a.show()
	case "clear":
		if !a.store.Clear() {
			return errors.New("configuration could not be deleted")
		}
		fmt.Println("Stored configuration deleted.")
		return nil
	case "history":
		limit := 10
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errUsage
			}
			limit = n
		}
		return a.history(ctx, limit)
	case "restore":
		return a.restore(ctx, args)
	case "themes":
		page := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errUsage
			}
			page = n
		}
		return a.themes(ctx, page)
	case "theme":
		if len(args) < 1 {
			return errUsage
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errUsage
		}
		return a.theme(ctx, id)
	case "cards":
		return a.cards(ctx)
	case "login":
		if len(args) < 1 {
			return errUsage
		}
		pw, err := readSecret("Password: ")
		if err != nil {
			return err
		}
		if err := a.api.Session().Login(ctx, args[0], pw); err != nil {
			return err
		}
		a.store.ClearLegacyToken()
		fmt.Println("Logged in as", args[0])
		return nil
	case "logout":
		a.api.Session().Logout()
		a.store.ClearLegacyToken()
		fmt.Println("Logged out.")
		return nil
	case "app-password":
		pw, err := readSecret("App password: ")
		if err != nil {
			return err
		}
		if err := config.Secrets().Set(config.KeyringService, config.SecretAppPassword, pw); err != nil {
			return fmt.Errorf("store app password: %w", err)
		}
		fmt.Println("App password stored in the system keyring.")
		return nil
	case "export":
		if len(args) < 2 {
			return errUsage
		}
		return a.export(args[0], args[1])
	case "ui":
		return a.ui(args, target)
	case "schema":
		_, err := os.Stdout.Write(storage.TabletSchema())
		return err
	}
	return errUsage
}

// adoptLegacyToken reuses the member token left by older kiosk builds while
// it is still valid and drops it otherwise.
func (a *app) adoptLegacyToken() {
	tok, ok := a.store.LegacyToken()
	if !ok {
		return
	}
	if a.api.Session().AdoptMemberToken(tok) {
		a.l.Info("legacy member token adopted")
		return
	}
	a.l.Info("legacy member token expired, removing")
	a.store.ClearLegacyToken()
}

func (a *app) show() error {
	cfg := a.store.GetCompleteLayout()
	if cfg == nil {
		fmt.Println("No configuration stored.")
		return nil
	}
	fmt.Printf("Theme: %s\n", cfg.ThemeID)
	fmt.Printf("Saved: %s\n", cfg.SavedAt.Format(time.RFC3339))
	fmt.Printf("Elements: %d\n", len(cfg.Elements))
	for _, el := range cfg.Elements {
		fmt.Printf("  %-40s %-22s @%.0f,%.0f %.0fx%.0f z=%d\n", el.ID, el.Type, el.Position.X, el.Position.Y, el.Size.Width, el.Size.Height, el.ZIndex)
	}
	fmt.Printf("Modals: %d\n", len(cfg.ModalConfigs))
	for card, l := range cfg.ModalConfigs {
		fmt.Printf("  card %s: %d elements\n", card, len(l))
	}
	return nil
}

func (a *app) history(ctx context.Context, limit int) error {
	snaps, err := a.store.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No history.")
		return nil
	}
	for _, s := range snaps {
		fmt.Printf("%6d  %s  theme=%s  %d bytes\n", s.ID, s.TS.Format(time.RFC3339), s.ThemeID, len(s.Doc))
	}
	return nil
}

func (a *app) restore(ctx context.Context, args []string) error {
	slot := a.store.Slot()
	var doc []byte
	var from string
	switch {
	case len(args) > 0 && args[0] == "--crash":
		b, err := slot.Get(storage.CrashKey)
		if err != nil {
			return fmt.Errorf("no crash autosave: %w", err)
		}
		doc, from = b, "crash autosave"
	case len(args) > 0:
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errUsage
		}
		ss, ok := slot.(*storage.SQLiteSlot)
		if !ok {
			return errors.New("history restore needs the sqlite backend")
		}
		snap, err := ss.Snapshot(ctx, id)
		if err != nil {
			return err
		}
		doc, from = snap.Doc, fmt.Sprintf("history entry %d", id)
	default:
		switch s := slot.(type) {
		case *storage.FileSlot:
			b, path, err := s.LatestBackup(storage.LayoutKey)
			if err != nil {
				return fmt.Errorf("no backup: %w", err)
			}
			doc, from = b, path
		case *storage.SQLiteSlot:
			snaps, err := s.ListSnapshots(ctx, 2)
			if err != nil {
				return err
			}
			// The newest entry is the current save.
			if len(snaps) < 2 {
				return errors.New("no earlier save in history")
			}
			doc, from = snaps[1].Doc, fmt.Sprintf("history entry %d", snaps[1].ID)
		default:
			return errors.New("storage backend keeps no backups")
		}
	}
	if !a.store.RestoreDocument(doc) {
		return fmt.Errorf("%s is not a valid configuration", from)
	}
	fmt.Println("Restored configuration from", from)
	return nil
}

func (a *app) themes(ctx context.Context, page int) error {
	tp, err := a.api.ListThemes(ctx, page)
	if err != nil {
		return err
	}
	fmt.Printf("Themes (page %d, %d total):\n", tp.Page, tp.TotalItems)
	for _, th := range tp.Themes {
		fmt.Printf("  %5d  %-30s cards=%d medias=%d\n", th.ID, th.Name, len(th.Cards), len(th.Medias))
	}
	return nil
}

func (a *app) theme(ctx context.Context, id int64) error {
	_, raw, err := a.api.FetchThemeRaw(ctx, id)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}

func (a *app) cards(ctx context.Context) error {
	cards, err := a.api.ListCards(ctx)
	if err != nil {
		return err
	}
	for _, c := range cards {
		fmt.Printf("  %5d  %s\n", c.ID, c.Title)
	}
	return nil
}

func (a *app) export(format, out string) error {
	cfg := a.store.GetCompleteLayout()
	if cfg == nil {
		return errors.New("no configuration stored")
	}
	files, err := export.Write(format, export.Pages(cfg, a.viewport(), a.api.MediaURL), out, export.Options{})
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println("Wrote", f)
	}
	return nil
}

func (a *app) ui(args []string, target *crash.Target) error {
	opts := ui.Options{
		Store:       a.store,
		API:         a.api,
		Viewport:    a.viewport(),
		Visitor:     a.cfg.General.Mode == config.ModeVisitor,
		IdleTimeout: a.cfg.General.InactivityTimeout(),
		Resolve:     a.api.MediaURL,
		Crash:       target,
	}
	for _, arg := range args {
		switch {
		case arg == "--visitor":
			opts.Visitor = true
		case arg == "--configurator":
			opts.Visitor = false
		default:
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return errUsage
			}
			opts.ThemeID = id
		}
	}
	return ui.Run(opts)
}

func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input")
	}
	return strings.TrimSpace(sc.Text()), nil
}
