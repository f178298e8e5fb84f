package groups

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dspace/dspace-rest/cmd/dspace-rest/cmd/cmdutil"
)

var addMemberCmd = &cobra.Command{
	Use:   "add-member <group> <email>",
	Short: "Add an EPerson to a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeMembership(args[0], args[1], true)
	},
}

var removeMemberCmd = &cobra.Command{
	Use:   "remove-member <group> <email>",
	Short: "Remove an EPerson from a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return changeMembership(args[0], args[1], false)
	},
}

func changeMembership(groupName, email string, add bool) error {
	store, err := cmdutil.NewStoreBundle()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	// Resolve eperson by email
	eperson, err := store.EPersons.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find eperson %q: %w", email, err)
	}

	if add {
		if err := store.Groups.AddMember(ctx, groupName, eperson.ID); err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		fmt.Printf("Added %s to %s\n", eperson.Email, groupName)
		return nil
	}
	if err := store.Groups.RemoveMember(ctx, groupName, eperson.ID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	fmt.Printf("Removed %s from %s\n", eperson.Email, groupName)
	return nil
}
