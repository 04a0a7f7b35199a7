package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/persistence"
	"github.com/example/shift-scheduler/internal/scheduler"
)

func newRulesCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage conflict rules",
	}
	cmd.AddCommand(
		newRulesListCommand(flags),
		newRulesAddCommand(flags),
		newRulesMutateCommand(flags, "rm", "Delete a rule", func(env *environment, cmd *cobra.Command, id string) (string, error) {
			return "rule " + id + " deleted", env.service.DeleteRule(cmd.Context(), id)
		}),
		newRulesMutateCommand(flags, "toggle", "Switch a rule between active and inactive", func(env *environment, cmd *cobra.Command, id string) (string, error) {
			rule, err := env.service.ToggleRule(cmd.Context(), id)
			return fmt.Sprintf("rule %s is now %s", id, activeLabel(rule.Active)), err
		}),
		newRulesMutateCommand(flags, "duplicate", "Copy a rule", func(env *environment, cmd *cobra.Command, id string) (string, error) {
			rule, err := env.service.DuplicateRule(cmd.Context(), id)
			return "rule " + id + " copied to " + rule.ID, err
		}),
		newRulesExportCommand(flags),
		newRulesImportCommand(flags),
	)
	return cmd
}

func newRulesListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			rules, err := env.service.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			if flags.json {
				return outputJSON(cmd.OutOrStdout(), toRuleRecords(rules))
			}
			if len(rules) == 0 {
				printEmpty(cmd.OutOrStdout(), "no rules defined")
				return nil
			}
			rows := make([][]string, 0, len(rules))
			for _, rule := range rules {
				rows = append(rows, []string{rule.ID, rule.Description(), activeLabel(rule.Active), rule.Strategy().String()})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Rule", "State", "Fix"}, rows)
			return nil
		},
	}
}

func newRulesAddCommand(flags *globalFlags) *cobra.Command {
	var inactive bool

	cmd := &cobra.Command{
		Use:   "add FIELD OPERATOR VALUE",
		Short: "Define a rule, e.g. add working-hours greater 40",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			active := !inactive
			rule, err := env.service.DefineRule(cmd.Context(), application.RuleInput{
				Field:    args[0],
				Operator: args[1],
				Value:    args[2],
				Active:   &active,
			})
			if err != nil {
				return describeError(err)
			}
			if err := env.service.Save(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("rule %s defined: %s", rule.ID, rule.Description()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&inactive, "inactive", false, "store the rule without enabling it")
	return cmd
}

func newRulesMutateCommand(flags *globalFlags, use, short string, run func(*environment, *cobra.Command, string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			msg, err := run(env, cmd, args[0])
			if err != nil {
				return describeError(err)
			}
			if err := env.service.Save(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newRulesExportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the rules as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			rules, err := env.service.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(toRuleRecords(rules)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newRulesImportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Define every rule of a YAML file written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var records []persistence.Rule
			if err := yaml.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			env, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer env.Close()

			for i, record := range records {
				active := record.Active
				if _, err := env.service.DefineRule(cmd.Context(), application.RuleInput{
					Field:    record.Field,
					Operator: record.Operator,
					Value:    record.Value,
					Active:   &active,
				}); err != nil {
					return fmt.Errorf("rule #%d: %w", i+1, describeError(err))
				}
			}
			if err := env.service.Save(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("%d rule%s imported", len(records), plural(len(records), "", "s")))
			return nil
		},
	}
}

func toRuleRecords(rules []scheduler.Rule) []persistence.Rule {
	records := make([]persistence.Rule, 0, len(rules))
	for i, rule := range rules {
		records = append(records, toPersistenceRule(rule, i))
	}
	return records
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

// describeError expands validation failures into their field messages.
func describeError(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) || !vErr.HasErrors() {
		return err
	}
	msg := vErr.Error() + ":"
	for _, field := range sortedKeys(vErr.FieldErrors) {
		msg += " " + field + " " + strconv.Quote(vErr.FieldErrors[field]) + ";"
	}
	return fmt.Errorf("%s", msg[:len(msg)-1])
}
