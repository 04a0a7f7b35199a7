package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/shift-scheduler/internal/application"
)

type conflictJSON struct {
	EntryID  string `json:"entry_id"`
	Calendar string `json:"calendar"`
	Entry    string `json:"entry"`
	Rule     string `json:"rule"`
}

type tableJSON struct {
	State     application.State `json:"state"`
	Conflicts []conflictJSON    `json:"conflicts"`
}

func toTableJSON(table application.ConflictTable) tableJSON {
	out := tableJSON{State: table.State, Conflicts: make([]conflictJSON, 0, len(table.Rows))}
	for _, row := range table.Rows {
		out.Conflicts = append(out.Conflicts, conflictJSON{
			EntryID:  row.EntryID,
			Calendar: row.Calendar,
			Entry:    row.Entry,
			Rule:     row.Rule,
		})
	}
	return out
}

func newScanCommand(flags *globalFlags) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the stored schedule and print the conflict table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			if refresh {
				if _, err := env.service.RefreshWorkingHours(ctx); err != nil {
					return err
				}
			}
			if _, err := env.service.Scan(ctx); err != nil {
				return err
			}
			table, err := env.service.Conflicts(ctx)
			if err != nil {
				return err
			}

			if flags.json {
				return outputJSON(cmd.OutOrStdout(), toTableJSON(table))
			}
			printConflictTable(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute working hours before scanning")
	return cmd
}

type resolutionJSON struct {
	EntryID  string `json:"entry_id"`
	Rule     string `json:"rule"`
	Strategy string `json:"strategy"`
	Adjusted bool   `json:"adjusted"`
	Resolved bool   `json:"resolved"`
}

type passJSON struct {
	Pass      int               `json:"pass"`
	State     application.State `json:"state"`
	Adjusted  int               `json:"adjusted"`
	Resolved  int               `json:"resolved"`
	Remaining int               `json:"remaining"`
	Results   []resolutionJSON  `json:"results"`
}

func newResolveCommand(flags *globalFlags) *cobra.Command {
	var (
		passes  int
		refresh bool
		apply   bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Run resolution passes on the snapshot",
		Long: `resolve scans the stored schedule and runs resolution passes on the
snapshot until no conflict remains or the pass limit is reached. With
--refresh, working hours are recomputed and the snapshot rescanned between
passes so that hour based rules see the adjusted entries. With --apply the
snapshot is committed to the live schedule and saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passes < 1 {
				return fmt.Errorf("--passes must be at least 1")
			}

			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if _, err := env.service.Scan(ctx); err != nil {
				return err
			}

			var reports []passJSON
			for pass := 1; pass <= passes; pass++ {
				report, err := env.service.Resolve(ctx)
				if err != nil {
					return err
				}
				reports = append(reports, toPassJSON(pass, report))
				if report.State == application.StateClean || pass == passes {
					break
				}
				if refresh {
					if _, err := env.service.RefreshWorkingHours(ctx); err != nil {
						return err
					}
					if _, err := env.service.Scan(ctx); err != nil {
						return err
					}
				}
			}

			if apply {
				if err := env.service.ApplySnapshot(ctx); err != nil {
					return err
				}
				if err := env.service.Save(ctx); err != nil {
					return err
				}
			}

			table, err := env.service.Conflicts(ctx)
			if err != nil {
				return err
			}

			if flags.json {
				return outputJSON(out, struct {
					Passes  []passJSON `json:"passes"`
					Applied bool       `json:"applied"`
					Table   tableJSON  `json:"table"`
				}{reports, apply, toTableJSON(table)})
			}

			for _, report := range reports {
				_, _ = headerColor.Fprintf(out, "Pass %d\n", report.Pass)
				rows := make([][]string, 0, len(report.Results))
				for _, result := range report.Results {
					rows = append(rows, []string{result.EntryID, result.Rule, result.Strategy, yesNo(result.Adjusted), yesNo(result.Resolved)})
				}
				printTable(out, []string{"Entry", "Rule", "Strategy", "Adjusted", "Resolved"}, rows)
				fmt.Fprintf(out, "  adjusted %d, resolved %d, remaining %d\n", report.Adjusted, report.Resolved, report.Remaining)
			}
			printConflictTable(out, table)
			if apply {
				printSuccess(out, "snapshot applied and saved")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&passes, "passes", 1, "maximum number of resolution passes")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute working hours and rescan between passes")
	cmd.Flags().BoolVar(&apply, "apply", false, "commit the snapshot to the live schedule and save it")
	return cmd
}

func toPassJSON(pass int, report application.ResolveReport) passJSON {
	out := passJSON{
		Pass:      pass,
		State:     report.State,
		Adjusted:  report.Adjusted,
		Resolved:  report.Resolved,
		Remaining: report.Remaining,
		Results:   make([]resolutionJSON, 0, len(report.Results)),
	}
	for _, result := range report.Results {
		out.Results = append(out.Results, resolutionJSON{
			EntryID:  result.EntryID,
			Rule:     result.Rule.Description(),
			Strategy: result.Strategy.String(),
			Adjusted: result.Adjusted,
			Resolved: result.Resolved,
		})
	}
	return out
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
