package policy

import "github.com/spf13/cobra"

// PolicyCmd is the parent command for resource policy management
var PolicyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage resource policies",
	Long: `Resource policies grant an action on an object to an EPerson or a group.
Subjects are written "eperson:<uuid>" or "group:<name>", objects "<kind>:<id>".
A running server picks changes up on SIGHUP.`,
}

var (
	conditionFlag string
	objectFlag    string
)

func init() {
	addCmd.Flags().StringVar(&conditionFlag, "condition", "", "Optional boolean expression over the object attributes")
	listCmd.Flags().StringVar(&objectFlag, "object", "", "Only list policies on this object")

	PolicyCmd.AddCommand(addCmd)
	PolicyCmd.AddCommand(listCmd)
	PolicyCmd.AddCommand(removeCmd)
}
