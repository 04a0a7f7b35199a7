package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/scheduler"
)

func newProfilesCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage employee profiles",
	}
	cmd.AddCommand(
		newProfilesListCommand(flags),
		newProfilesAddCommand(flags),
		newProfilesRemoveCommand(flags),
		newProfilesRefreshCommand(flags),
		newProfilesExportCommand(flags),
	)
	return cmd
}

func newProfilesListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			profiles, err := env.service.ListProfiles(cmd.Context())
			if err != nil {
				return err
			}
			if flags.json {
				return outputJSON(cmd.OutOrStdout(), toProfileRecords(profiles))
			}
			if len(profiles) == 0 {
				printEmpty(cmd.OutOrStdout(), "no profiles defined")
				return nil
			}
			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				rows = append(rows, []string{p.Name, strconv.Itoa(p.WorkingHours), p.Email, p.Job, p.PreferredShift, strconv.Itoa(p.Age)})
			}
			printTable(cmd.OutOrStdout(), []string{"Name", "Hours", "Email", "Job", "Shift", "Age"}, rows)
			return nil
		},
	}
}

func newProfilesAddCommand(flags *globalFlags) *cobra.Command {
	var input application.ProfileInput

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a profile and its empty calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			input.Name = args[0]
			profile, err := env.service.CreateProfile(cmd.Context(), input)
			if err != nil {
				return describeError(err)
			}
			if err := env.service.Save(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "profile "+profile.Name+" created")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&input.Email, "email", "", "email address")
	f.StringVar(&input.Job, "job", "", "job title")
	f.StringVar(&input.PreferredShift, "shift", "", "preferred shift")
	f.IntVar(&input.Age, "age", 0, "age in years")
	return cmd
}

func newProfilesRemoveCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a profile; its calendar is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.DeleteProfile(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := env.service.Save(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "profile "+args[0]+" deleted")
			return nil
		},
	}
}

func newProfilesRefreshCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Recompute working hours from the live calendars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			profiles, err := env.service.RefreshWorkingHours(cmd.Context())
			if err != nil {
				return err
			}
			if err := env.service.Save(cmd.Context()); err != nil {
				return err
			}
			n := len(profiles)
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("working hours refreshed for %d profile%s", n, plural(n, "", "s")))
			return nil
		},
	}
}

func newProfilesExportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the profiles as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			profiles, err := env.service.ListProfiles(cmd.Context())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(toProfileRecords(profiles)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func toProfileRecords(profiles []scheduler.Profile) []persistence.Profile {
	records := make([]persistence.Profile, 0, len(profiles))
	for _, p := range profiles {
		records = append(records, toPersistenceProfile(p))
	}
	return records
}
