package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var learnerCmd = &cobra.Command{
	Use:   "learner",
	Short: "Manage learners",
}

var learnerAddCmd = &cobra.Command{
	Use:   "add <identifier> <name>",
	Short: "Register a learner",
	Args:  cobra.MinimumNArgs(2),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		l, err := rt.store.CreateLearner(cmd.Context(), strings.Join(args[1:], " "), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Learner %d created: %s (%s)\n", l.ID, l.Name, l.Identifier)
		return nil
	}),
}

var learnerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learners",
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		ls, err := rt.store.ListLearners(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ls) == 0 {
			fmt.Fprintln(out, "No learners registered.")
			return nil
		}
		fmt.Fprintf(out, "%-5s  %-16s  %-28s  %-8s  %s\n", "ID", "Identifier", "Name", "Sessions", "Created")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, l := range ls {
			fmt.Fprintf(out, "%-5d  %-16s  %-28s  %-8d  %s\n",
				l.ID, l.Identifier, truncate(l.Name, 28), l.Sessions, l.CreatedAt.Local().Format("2006-01-02"))
		}
		return nil
	}),
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	learnerCmd.AddCommand(learnerAddCmd)
	learnerCmd.AddCommand(learnerListCmd)
}
