package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/taskman/internal/config"
	"github.com/Makepad-fr/taskman/internal/model"
	"github.com/Makepad-fr/taskman/internal/tui"
	"github.com/Makepad-fr/taskman/internal/ui"
)

const version = "0.2.0"

func newRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskman",
		Short: "Track short-lived personal tasks",
		Long: `taskman keeps a small list of personal tasks (title, priority, deadline,
completion) in a JSON file in the current directory.

Run without a subcommand to open the interactive list.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(overridesFrom(cmd))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &exitError{code: ExitUsage, msg: err.Error(), hint: fmt.Sprintf("Run `%s --help` for usage.", cmd.CommandPath())}
	})

	pf := root.PersistentFlags()
	pf.String("file", "", "data file (default tasks.json in the working directory)")
	pf.String("config", "", "config file (default taskman.toml in the working directory)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("theme", "", "color theme: classic, neon, mono")
	pf.Bool("group", false, "group listings by pending/done")

	root.AddCommand(
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newEditCmd(a),
		newDoneCmd(a),
		newRemoveCmd(a),
		newSearchCmd(a),
		newTUICmd(a),
	)
	return root
}

func overridesFrom(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	fs := cmd.Flags()
	str := func(name string) *string {
		if !fs.Changed(name) {
			return nil
		}
		v, _ := fs.GetString(name)
		return &v
	}
	o.DataFile = str("file")
	o.ConfigFile = str("config")
	o.LogLevel = str("log-level")
	o.Theme = str("theme")
	if fs.Changed("group") {
		v, _ := fs.GetBool("group")
		o.Group = &v
	}
	return o
}

// idArg validates a single numeric task id argument.
func idArg(name string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return usageErr("usage: taskman %s <id>", name)
		}
		if _, err := strconv.Atoi(args[0]); err != nil {
			return usageErr("%s: not a number: %s", name, args[0])
		}
		return nil
	}
}

func parseID(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func newAddCmd(a *App) *cobra.Command {
	var priority, deadline string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a new task (title can be multiple words)",
		Example: `  taskman add "Write report" -p high -d 2024-06-01
  taskman add Buy milk`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageErr("usage: taskman add <title...> [-p low|medium|high] [-d YYYY-MM-DD]")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return usageErr("add: empty title")
			}
			p, err := model.ParsePriority(priority)
			if err != nil {
				return usageErr("add: %v", err)
			}
			deadline = strings.TrimSpace(deadline)
			if err := model.ValidateDeadline(deadline); err != nil {
				return usageErr("add: %v", err)
			}
			if err := a.openStore(); err != nil {
				return err
			}
			t, err := a.store.Create(title, p, deadline)
			if err != nil {
				return mutationErr("add", err)
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("added #%d %q", t.ID, t.Title))
			return nil
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", string(model.Low), "priority: low, medium, high")
	cmd.Flags().StringVarP(&deadline, "deadline", "d", "", "deadline as YYYY-MM-DD")
	return cmd
}

func newListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openStore(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Listing("Tasks", a.store.List(), a.cfg.Group, a.Now()))
			return nil
		},
	}
}

func newShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of one task",
		Args:  idArg("show"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openStore(); err != nil {
				return err
			}
			t, err := a.store.Get(parseID(args[0]))
			if err != nil {
				return mutationErr("show", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Detail(t, a.Now()))
			return nil
		},
	}
}

func newEditCmd(a *App) *cobra.Command {
	var title, priority, deadline string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title, priority or deadline of a task",
		Long: `Change fields of a task. Only the flags you pass are changed.
Pass an empty value to clear the priority or the deadline.`,
		Example: `  taskman edit 3 --title "Write final report"
  taskman edit 3 --deadline ""`,
		Args: idArg("edit"),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			var p model.Patch
			if fs.Changed("title") {
				t := strings.TrimSpace(title)
				if t == "" {
					return usageErr("edit: title cannot be empty")
				}
				p.Title = &t
			}
			if fs.Changed("priority") {
				v := ""
				if strings.TrimSpace(priority) != "" {
					pr, err := model.ParsePriority(priority)
					if err != nil {
						return usageErr("edit: %v", err)
					}
					v = string(pr)
				}
				p.Priority = &v
			}
			if fs.Changed("deadline") {
				d := strings.TrimSpace(deadline)
				if err := model.ValidateDeadline(d); err != nil {
					return usageErr("edit: %v", err)
				}
				p.Deadline = &d
			}
			if p.Empty() {
				return usageErr("edit: nothing to change (use --title, --priority or --deadline)")
			}
			if err := a.openStore(); err != nil {
				return err
			}
			t, err := a.store.Update(parseID(args[0]), p)
			if err != nil {
				return mutationErr("edit", err)
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("updated #%d", t.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority: low, medium, high")
	cmd.Flags().StringVarP(&deadline, "deadline", "d", "", "new deadline as YYYY-MM-DD")
	return cmd
}

func newDoneCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle completion of a task",
		Args:  idArg("done"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openStore(); err != nil {
				return err
			}
			t, err := a.store.ToggleComplete(parseID(args[0]))
			if err != nil {
				return mutationErr("done", err)
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("#%d is now %s", t.ID, t.Status()))
			return nil
		},
	}
}

func newRemoveCmd(a *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task permanently",
		Args:    idArg("rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openStore(); err != nil {
				return err
			}
			id := parseID(args[0])
			t, err := a.store.Get(id)
			if err != nil {
				return mutationErr("rm", err)
			}
			if a.opt.Interactive && !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete #%d %q? [y/N] ", t.ID, t.Title)
				if !confirmed(cmd) {
					ui.Hint(cmd.OutOrStdout(), "cancelled")
					return nil
				}
			}
			if err := a.store.Delete(id); err != nil {
				return mutationErr("rm", err)
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("removed #%d", id))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirmed(cmd *cobra.Command) bool {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func newSearchCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword...>",
		Short: "List tasks whose title contains the keyword (case-insensitive)",
		Args: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(strings.Join(args, " ")) == "" {
				return usageErr("usage: taskman search <keyword...>")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.TrimSpace(strings.Join(args, " "))
			if err := a.openStore(); err != nil {
				return err
			}
			found := a.store.Search(keyword)
			if len(found) == 0 {
				ui.Hint(cmd.OutOrStdout(), fmt.Sprintf("no tasks found matching %q", keyword))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Listing(fmt.Sprintf("Search %q", keyword), found, a.cfg.Group, a.Now()))
			return nil
		},
	}
}

func newTUICmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}
}

func (a *App) runTUI() error {
	if err := a.openStore(); err != nil {
		return err
	}
	// The alt screen owns the terminal while the program runs; store
	// failures surface in its status line instead.
	a.log.SetOutput(io.Discard)
	err := a.opt.RunTUI(a)
	a.log.SetOutput(a.opt.Stderr)
	if err != nil {
		return failErr("tui: %v", err)
	}
	return nil
}

func startTUI(a *App) error {
	return tui.Run(a.store, tui.Options{
		Now:    a.opt.Now,
		Logger: a.log,
	})
}
