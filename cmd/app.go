package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/todu/internal/activity"
	"github.com/twiced-technology-gmbh/todu/internal/clierr"
	"github.com/twiced-technology-gmbh/todu/internal/config"
	"github.com/twiced-technology-gmbh/todu/internal/engine"
	"github.com/twiced-technology-gmbh/todu/internal/kv"
	"github.com/twiced-technology-gmbh/todu/internal/output"
	"github.com/twiced-technology-gmbh/todu/internal/storage"
	"github.com/twiced-technology-gmbh/todu/internal/task"
)

// app bundles everything a command needs once the data directory is open.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	backend  kv.Backend
	store    *storage.Store
	eng      *engine.Engine
	activity *activity.Log
	settings config.Settings

	// purged holds the tasks removed by the auto-delete pass on open.
	purged []task.Task
	detach func()
}

// resolveDir returns the data directory from --dir / TODU_DIR, falling back
// to ~/.config/todu.
func resolveDir() (string, error) {
	if dir := viper.GetString("dir"); dir != "" {
		return dir, nil
	}
	return config.DefaultDir()
}

// loadConfig loads the config of the resolved data directory. The default
// directory is created on first use; any other directory must be
// initialized with 'todu init'.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if errors.Is(err, config.ErrNotFound) {
		home, homeErr := config.DefaultDir()
		if homeErr != nil || filepath.Clean(dir) != home {
			return nil, clierr.Wrap(clierr.StoreNotFound, err).WithDetails(map[string]any{"dir": dir})
		}
		cfg, err = config.Init(home)
	}
	if errors.Is(err, config.ErrInvalid) {
		return nil, clierr.Wrap(clierr.InvalidInput, err)
	}
	if err != nil {
		return nil, err
	}

	if b := viper.GetString("backend"); b != "" {
		if !slices.Contains(kv.Kinds, b) {
			return nil, clierr.Newf(clierr.InvalidInput, "invalid backend %q; allowed: %s", b, strings.Join(kv.Kinds, ", "))
		}
		cfg.Backend = b
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.SlogLevel()
	if v := viper.GetString("log-level"); v != "" {
		level = config.ParseLevel(v)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openApp loads the config and opens the store and engine. Completed tasks
// past the auto-delete age are purged on open.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	backend, err := kv.Open(cfg.Backend, cfg.Dir(), cfg.QuotaBytes, log)
	if err != nil {
		return nil, clierr.Wrap(clierr.StorageFailed, fmt.Errorf("opening %s store: %w", cfg.Backend, err))
	}

	store := storage.New(backend, storage.WithLogger(log))
	eng, err := engine.New(store, engine.WithLogger(log), engine.WithLocale(cfg.Tag()))
	if err != nil {
		_ = backend.Close()
		return nil, clierr.Wrap(clierr.StorageFailed, err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		backend:  backend,
		store:    store,
		eng:      eng,
		settings: store.LoadSettings(),
		detach:   func() {},
	}
	if cfg.ActivityEnabled() {
		a.activity = activity.New(cfg.ActivityPath())
		a.detach = a.activity.Attach(eng)
	}
	output.ApplyTheme(a.settings.Theme, store.LoadDarkMode())

	a.purged = eng.PurgeCompleted()
	if len(a.purged) > 0 {
		log.Info("purged completed tasks", "count", len(a.purged), "days", a.settings.AutoDeleteCompletedDays)
	}
	return a, nil
}

// Close releases the engine and the backend.
func (a *app) Close() {
	a.detach()
	a.eng.Close()
	if err := a.backend.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
}

// checkSynced turns an unsaved engine state into an error, since the
// process is about to exit and would lose the change.
func (a *app) checkSynced() error {
	if a.eng.Synced() {
		return nil
	}
	return clierr.New(clierr.StorageFailed, "change could not be saved (storage full or unavailable)")
}

// resolveID maps a full id, or a unique prefix or suffix of one, to a task id.
func (a *app) resolveID(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", clierr.New(clierr.InvalidTaskID, "task ID is empty")
	}
	if _, ok := a.eng.Get(arg); ok {
		return arg, nil
	}

	var matches []string
	for _, t := range a.eng.Tasks() {
		if strings.HasSuffix(t.ID, arg) || strings.HasPrefix(t.ID, arg) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", clierr.Newf(clierr.TaskNotFound, "task %q not found", arg).
			WithDetails(map[string]any{"id": arg})
	}
	return "", clierr.Newf(clierr.InvalidTaskID, "task ID %q is ambiguous", arg).
		WithDetails(map[string]any{"id": arg, "matches": matches})
}

// resolveIDs resolves each id, failing on the first unknown one.
func (a *app) resolveIDs(args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := a.resolveID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// engineError converts engine rejections into coded CLI errors.
func engineError(err error, id string) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return clierr.Newf(clierr.TaskNotFound, "task %q not found", id).WithDetails(map[string]any{"id": id})
	case errors.Is(err, engine.ErrEmptyText):
		return clierr.New(clierr.EmptyText, "task text cannot be empty")
	case errors.Is(err, engine.ErrIndexOutOfRange):
		return clierr.Wrap(clierr.InvalidIndex, err)
	case errors.Is(err, engine.ErrInvalidPriority):
		return clierr.Wrap(clierr.InvalidPriority, err)
	}
	return err
}

// runBatch executes fn for each ID and collects results. Returns a SilentError
// with exit code 1 if any operation failed (after outputting results).
func runBatch(out, errOut io.Writer, ids []string, fn func(string) error) error {
	results := make([]output.BatchResult, 0, len(ids))
	anyFailed := false

	for _, id := range ids {
		err := fn(id)
		if err == nil {
			results = append(results, output.BatchResult{ID: id, OK: true})
			continue
		}
		anyFailed = true
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			results = append(results, output.BatchResult{ID: id, OK: false, Error: cliErr.Message, Code: cliErr.Code})
		} else {
			results = append(results, output.BatchResult{ID: id, OK: false, Error: err.Error()})
		}
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(out, results); err != nil {
			return err
		}
	} else {
		var succeeded int
		for _, r := range results {
			if r.OK {
				succeeded++
			} else {
				fmt.Fprintf(errOut, "Error: task %s: %s\n", r.ID, r.Error)
			}
		}
		output.Messagef(out, "Completed %d/%d operations", succeeded, len(ids))
	}

	if anyFailed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}

// confirm asks a yes/no question on stderr. It refuses when in is not a
// terminal.
func confirm(in io.Reader, prompt string) (bool, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, clierr.New(clierr.ConfirmationReq,
			"cannot prompt for confirmation (not a terminal); use --yes")
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" && answer != "yes" {
		fmt.Fprintln(os.Stderr, "Canceled.")
		return false, nil
	}
	return true, nil
}
