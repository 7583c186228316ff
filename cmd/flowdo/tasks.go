package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dori/flowdo/internal/app"
	"github.com/dori/flowdo/internal/model"
	"github.com/dori/flowdo/internal/ui/views"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

func addCmd(load configLoader) *cobra.Command {
	var desc, typ, priority, remind string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Quick add a task",
		Example: `  flowdo add "Buy milk"
  flowdo add "Call the dentist" --type life --priority high --remind 30m
  flowdo add "Submit report" --remind "2026-11-02 09:00"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := model.Task{
				Title:       strings.Join(args, " "),
				Description: desc,
				Type:        model.Type(typ),
				Priority:    model.Priority(priority),
			}
			if !draft.Type.Valid() {
				return fmt.Errorf("unknown type %q", typ)
			}
			if !draft.Priority.Valid() {
				return fmt.Errorf("unknown priority %q", priority)
			}
			if remind != "" {
				when, err := parseWhen(remind, time.Now())
				if err != nil {
					return err
				}
				draft.ReminderTime = &when
			}

			ctx := cmd.Context()
			application, err := openApp(ctx, load, app.SurfaceCLI)
			if err != nil {
				return err
			}
			defer application.Close()

			task, err := application.Store.Create(ctx, draft)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created: %s (%s)\n", task.Title, task.ID)
			if task.Priority != model.PriorityMedium {
				fmt.Fprintf(out, "Priority: %s\n", task.Priority)
			}
			if task.ReminderTime != nil {
				if task.ReminderTime.After(time.Now()) {
					application.Scheduler.Schedule(ctx, task.ID, *task.ReminderTime)
					fmt.Fprintf(out, "Reminder: %s\n", task.ReminderTime.Local().Format(views.ReminderLayout))
				} else {
					fmt.Fprintln(out, "Reminder is in the past; not scheduled")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")
	cmd.Flags().StringVarP(&typ, "type", "t", string(model.TypeWork), "Type (work, life, study, idea, goal, shopping)")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(model.PriorityMedium), "Priority (low, medium, high)")
	cmd.Flags().StringVarP(&remind, "remind", "r", "", `Reminder: a delay like "30m" or a local time "YYYY-MM-DD HH:MM"`)
	return cmd
}

// parseWhen reads a reminder given as a delay from now or an absolute time
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(strings.TrimPrefix(s, "+")); err == nil {
		return now.Add(d).UTC(), nil
	}
	if t, err := time.ParseInLocation(views.ReminderLayout, s, time.Local); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid reminder %q (want a delay like 30m or %q)", s, views.ReminderLayout)
}

func listCmd(load configLoader) *cobra.Command {
	var tabFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := model.ParseTab(tabFlag)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			application, err := openApp(ctx, load, app.SurfaceCLI)
			if err != nil {
				return err
			}
			defer application.Close()

			tasks := model.Visible(application.Store.Tasks(), tab)
			out := cmd.OutOrStdout()
			switch {
			case len(tasks) == 0 && tab == model.TabAll:
				fmt.Fprintln(out, "No tasks")
				return nil
			case len(tasks) == 0:
				fmt.Fprintf(out, "No %s tasks\n", strings.ToLower(tab.Label()))
				return nil
			}
			for _, task := range tasks {
				printTask(out, task)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tabFlag, "tab", string(model.TabAll), "Tab (all, pending, progress, completed)")
	return cmd
}

func printTask(w io.Writer, task model.Task) {
	line := fmt.Sprintf("%s  %-11s %-6s %-8s %s", shortID(task.ID), task.Status.Label(), task.Priority, task.Type, task.Title)
	if task.ReminderTime != nil {
		line += "  @ " + task.ReminderTime.Local().Format(views.ReminderLayout)
	}
	fmt.Fprintln(w, line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

// resolveTask finds a task by id, id suffix as printed by list, or exact title
func resolveTask(tasks []model.Task, ref string) (model.Task, error) {
	var matches []model.Task
	for _, task := range tasks {
		if task.ID == ref {
			return task, nil
		}
		if strings.HasSuffix(task.ID, ref) || strings.EqualFold(task.Title, ref) {
			matches = append(matches, task)
		}
	}
	switch len(matches) {
	case 0:
		return model.Task{}, fmt.Errorf("no task matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return model.Task{}, fmt.Errorf("%d tasks match %q; use the id", len(matches), ref)
	}
}

// withTask opens the store and runs fn on the task ref names
func withTask(cmd *cobra.Command, load configLoader, ref string, fn func(context.Context, *app.App, model.Task) error) error {
	ctx := cmd.Context()
	application, err := openApp(ctx, load, app.SurfaceCLI)
	if err != nil {
		return err
	}
	defer application.Close()

	task, err := resolveTask(application.Store.Tasks(), ref)
	if err != nil {
		return err
	}
	return fn(ctx, application, task)
}

func doneCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id|title>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, load, args[0], func(ctx context.Context, a *app.App, task model.Task) error {
				if _, err := a.Store.SetStatus(ctx, task.ID, model.StatusCompleted); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Completed: %s\n", task.Title)
				return nil
			})
		},
	}
}

func deleteCmd(load configLoader) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id|title>",
		Short: "Delete a task and its reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTask(cmd, load, args[0], func(ctx context.Context, a *app.App, task model.Task) error {
				if !yes {
					ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %q?", task.Title))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), "Kept")
						return nil
					}
				}
				if err := a.Store.Remove(ctx, task.ID); err != nil {
					return err
				}
				a.Scheduler.Cancel(ctx, task.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", task.Title)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

// confirm asks a y/n question on a terminal; without one it refuses
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, fmt.Errorf("not a terminal; pass --yes to confirm")
	}
	fmt.Fprintf(out, "%s (y/n) ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func snoozeCmd(load configLoader) *cobra.Command {
	var minutes int

	cmd := &cobra.Command{
		Use:   "snooze <id|title>",
		Short: "Remind again after a delay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if minutes <= 0 {
				return fmt.Errorf("--minutes must be positive")
			}
			return withTask(cmd, load, args[0], func(ctx context.Context, a *app.App, task model.Task) error {
				a.Scheduler.Snooze(ctx, task.ID, minutes)
				fmt.Fprintf(cmd.OutOrStdout(), "Snoozed: %s for %d min\n", task.Title, minutes)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 5, "Delay in minutes")
	return cmd
}

// exportDoc is the document written by export
type exportDoc struct {
	Settings model.Settings `json:"settings" yaml:"settings"`
	Tasks    []model.Task   `json:"tasks" yaml:"tasks"`
}

func exportCmd(load configLoader) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write tasks and settings to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			ctx := cmd.Context()
			application, err := openApp(ctx, load, app.SurfaceCLI)
			if err != nil {
				return err
			}
			defer application.Close()

			settings, err := application.Store.LoadSettings(ctx)
			if err != nil {
				return err
			}
			doc := exportDoc{Settings: settings, Tasks: application.Store.Tasks()}
			if doc.Tasks == nil {
				doc.Tasks = []model.Task{}
			}

			out := cmd.OutOrStdout()
			if format == "yaml" {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml)")
	return cmd
}
