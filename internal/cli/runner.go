package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/taskman/internal/config"
	"github.com/Makepad-fr/taskman/internal/logging"
	"github.com/Makepad-fr/taskman/internal/store"
	"github.com/Makepad-fr/taskman/internal/store/jsonstore"
	"github.com/Makepad-fr/taskman/internal/ui"
)

// Exit codes: 0 ok, 1 error, 2 usage.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Options wire the process environment into the CLI.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// WorkDir anchors relative data file paths and the project config.
	WorkDir string
	// Interactive enables prompts such as the delete confirmation.
	Interactive bool
	// Now stamps created_at and drives relative dates.
	Now func() time.Time
	// RunTUI starts the interactive UI. Nil means the bubbletea program.
	RunTUI func(a *App) error
}

func (o *Options) setDefaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			o.WorkDir = wd
		} else {
			o.WorkDir = "."
		}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.RunTUI == nil {
		o.RunTUI = startTUI
	}
}

// exitError carries an exit code and a message already meant for the user.
type exitError struct {
	code int
	msg  string
	hint string
}

func (e *exitError) Error() string { return e.msg }

func usageErr(format string, a ...any) error {
	return &exitError{code: ExitUsage, msg: fmt.Sprintf(format, a...)}
}

func failErr(format string, a ...any) error {
	return &exitError{code: ExitError, msg: fmt.Sprintf(format, a...)}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	opt.setDefaults()
	app := &App{opt: opt}
	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetIn(opt.Stdin)
	root.SetOut(opt.Stdout)
	root.SetErr(opt.Stderr)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			ui.Fail(opt.Stderr, ee.msg)
		}
		if ee.hint != "" {
			ui.Hint(opt.Stderr, ee.hint)
		}
		return ee.code
	}

	// Anything else comes from cobra itself: bad flags, unknown commands.
	ui.Fail(opt.Stderr, err.Error())
	ui.Hint(opt.Stderr, "Run `taskman --help` for usage.")
	return ExitUsage
}

// App holds what a command needs once flags are parsed.
type App struct {
	opt   Options
	cfg   *config.Config
	log   *log.Logger
	store *store.Store
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Store returns the opened task store.
func (a *App) Store() *store.Store { return a.store }

// Logger returns the process logger.
func (a *App) Logger() *log.Logger { return a.log }

// Now returns the current time from the injected clock.
func (a *App) Now() time.Time { return a.opt.Now() }

func (a *App) setup(o config.Overrides) error {
	cfg, err := config.Load(a.opt.WorkDir, o)
	if err != nil {
		return &exitError{code: ExitUsage, msg: err.Error()}
	}
	lopts := logging.DefaultOptions()
	lopts.Level = cfg.LogLevel
	l, err := logging.New(a.opt.Stderr, lopts)
	if err != nil {
		return &exitError{code: ExitUsage, msg: err.Error()}
	}
	a.cfg = cfg
	a.log = l
	ui.SetTheme(cfg.Theme)
	l.Debug("config resolved", "data_file", cfg.DataFile, "theme", cfg.Theme)
	return nil
}

// openStore loads the data file. A corrupt file stops the command so it is
// never overwritten.
func (a *App) openStore() error {
	if a.store != nil {
		return nil
	}
	s, err := store.New(jsonstore.New(a.cfg.DataFile),
		store.WithClock(a.opt.Now),
		store.WithLogger(a.log),
	)
	if err != nil {
		e := &exitError{code: ExitError, msg: err.Error()}
		if errors.Is(err, jsonstore.ErrCorrupt) {
			e.hint = "The file was left untouched. Fix or move it, or point --file elsewhere."
		}
		return e
	}
	a.store = s
	return nil
}

// mutationErr maps store errors to exit errors.
func mutationErr(op string, err error) error {
	var fe *store.FlushError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrEmptyTitle):
		return usageErr("%s: %v", op, err)
	case errors.Is(err, store.ErrNotFound):
		return &exitError{code: ExitError, msg: fmt.Sprintf("%s: %v", op, err), hint: "Hint: run `taskman ls` to see valid ids"}
	case errors.As(err, &fe):
		return &exitError{code: ExitError, msg: fmt.Sprintf("%s: change kept in memory but not saved: %v", op, fe.Err)}
	}
	return failErr("%s: %v", op, err)
}
