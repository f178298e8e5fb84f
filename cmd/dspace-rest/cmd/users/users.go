package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for EPerson management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage EPersons",
	Long:  `Commands for managing password-login EPersons directly from the server.`,
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the EPerson")
	createCmd.Flags().StringVar(&firstNameFlag, "first", "", "First name")
	createCmd.Flags().StringVar(&lastNameFlag, "last", "", "Last name")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password (use --stdin to avoid shell history)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")
	createCmd.Flags().BoolVar(&adminFlag, "admin", false, "Add the EPerson to the Administrator group")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(listCmd)
}
