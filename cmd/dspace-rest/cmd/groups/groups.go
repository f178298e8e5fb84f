package groups

import "github.com/spf13/cobra"

// GroupsCmd is the parent command for group management operations
var GroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage EPerson groups",
}

func init() {
	GroupsCmd.AddCommand(createCmd)
	GroupsCmd.AddCommand(listCmd)
	GroupsCmd.AddCommand(addMemberCmd)
	GroupsCmd.AddCommand(removeMemberCmd)
}
