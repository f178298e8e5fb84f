package groups

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dspace/dspace-rest/cmd/dspace-rest/cmd/cmdutil"
	"github.com/dspace/dspace-rest/internal/db/models"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cmdutil.NewStoreBundle()
		if err != nil {
			return err
		}
		defer store.Close()

		group := &models.Group{Name: args[0]}
		if err := store.Groups.Create(context.Background(), group); err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		fmt.Printf("Group %q created (id %s)\n", group.Name, group.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cmdutil.NewStoreBundle()
		if err != nil {
			return err
		}
		defer store.Close()

		groups, err := store.Groups.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPERMANENT")
		for _, g := range groups {
			fmt.Fprintf(w, "%s\t%s\t%t\n", g.ID, g.Name, g.Permanent)
		}
		return w.Flush()
	},
}
