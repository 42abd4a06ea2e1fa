package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"lattes-dw/storage"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errAnomalies = errors.New("validation found anomalies")

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "truncate the warehouse and rebuild every dimension and fact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			run, err := a.svc.Runner.Run(cmd.Context(), "cli")
			if run != nil {
				fmt.Fprintf(a.stdout, "run %d %s\n", run.ID, run.Status)
				if run.Report != "" {
					fmt.Fprint(a.stdout, run.Report)
				}
				if run.ReportURL != "" {
					fmt.Fprintln(a.stdout, "report:", run.ReportURL)
				}
			}
			return err
		},
	}
}

func newStepCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "step NAME",
		Short: "run a single step without its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			out, err := a.svc.Runner.RunStep(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			switch {
			case out != nil && out.Result != nil:
				r := out.Result
				fmt.Fprintf(a.stdout, "%s: inserted %d of %d considered\n", r.Name, r.Inserted, r.Considered)
				reasons := make([]string, 0, len(r.Dropped))
				for reason := range r.Dropped {
					reasons = append(reasons, reason)
				}
				sort.Strings(reasons)
				for _, reason := range reasons {
					fmt.Fprintf(a.stdout, "  dropped %s: %d\n", reason, r.Dropped[reason])
				}
			case out != nil && out.Report != nil:
				fmt.Fprint(a.stdout, out.Report.String())
			default:
				fmt.Fprintf(a.stdout, "%s: done\n", args[0])
			}
			return nil
		},
	}
}

func newStepsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "list the pipeline steps in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			order, err := a.svc.Runner.Graph().Order()
			if err != nil {
				return err
			}
			t := table.New().Border(lipgloss.NormalBorder()).Headers("#", "STEP", "DEPENDS ON")
			for i, s := range order {
				t.Row(fmt.Sprint(i+1), s.Name, strings.Join(s.DependsOn, ", "))
			}
			fmt.Fprintln(a.stdout, t.String())
			return nil
		},
	}
}

func newValidateCommand(a *app) *cobra.Command {
	var format string
	c := &cobra.Command{
		Use:   "validate",
		Short: "check the warehouse and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q", format)
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			report, err := a.svc.Validator.Run(cmd.Context())
			if err != nil {
				return err
			}
			switch format {
			case "json":
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				err = enc.Encode(report)
			case "yaml":
				enc := yaml.NewEncoder(a.stdout)
				err = enc.Encode(report)
				if err == nil {
					err = enc.Close()
				}
			default:
				_, err = fmt.Fprint(a.stdout, report.String())
			}
			if err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("%w: %d", errAnomalies, len(report.Anomalies()))
			}
			return nil
		},
	}
	c.Flags().StringVar(&format, "format", "table", "output format: table, json or yaml")
	return c
}

func newMigrateCommand(a *app) *cobra.Command {
	var staging bool
	c := &cobra.Command{
		Use:   "migrate",
		Short: "create the warehouse schema and tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := storage.Migrate(cmd.Context(), a.svc.DB, storage.SchemasFromConfig(a.cfg), staging); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "migrated")
			return nil
		},
	}
	c.Flags().BoolVar(&staging, "staging", false, "also create the staging tables")
	return c
}

func init() {
	subcommandFns["run"] = newRunCommand
	subcommandFns["step"] = newStepCommand
	subcommandFns["steps"] = newStepsCommand
	subcommandFns["validate"] = newValidateCommand
	subcommandFns["migrate"] = newMigrateCommand
}
