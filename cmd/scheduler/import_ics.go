package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/ics"
)

func newImportICSCommand(flags *globalFlags) *cobra.Command {
	var (
		calendarName string
		from         string
		days         int
	)

	cmd := &cobra.Command{
		Use:   "import-ics FILE",
		Short: "Import iCalendar events into a calendar (FILE - reads stdin)",
		Long: `import-ics adds the events of an .ics file to a calendar. Recurring events
are expanded between --from and the configured horizon; entries already
imported are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			loc := env.cfg.TimeZone
			start := time.Now().In(loc)
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
			if from != "" {
				if start, err = time.ParseInLocation("2006-01-02", from, loc); err != nil {
					return fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", from)
				}
			}
			horizon := env.cfg.ICSHorizon
			if days > 0 {
				horizon = time.Duration(days) * 24 * time.Hour
			}

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			entries, err := ics.Parse(r, ics.Options{
				Location: loc,
				From:     start,
				Until:    start.Add(horizon),
				Logger:   env.logger,
			})
			if err != nil {
				return err
			}

			added, err := env.service.ImportEntries(cmd.Context(), calendarName, entries)
			if err != nil {
				return describeError(err)
			}
			if err := env.service.Save(cmd.Context()); err != nil {
				return err
			}

			skipped := len(entries) - added
			msg := fmt.Sprintf("%d entr%s imported into %s", added, plural(added, "y", "ies"), calendarName)
			if skipped > 0 {
				msg += fmt.Sprintf(" (%d already present)", skipped)
			}
			printSuccess(cmd.OutOrStdout(), msg)
			if env.service.State() == application.StateConflicted {
				printWarning(cmd.OutOrStdout(), "imported entries violate active rules; run scan for details")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "target calendar (owner name)")
	cmd.Flags().StringVar(&from, "from", "", "first day of the expansion window, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&days, "days", 0, "length of the expansion window in days (default from configuration)")
	_ = cmd.MarkFlagRequired("calendar")
	return cmd
}
