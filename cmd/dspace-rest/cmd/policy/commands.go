package policy

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dspace/dspace-rest/cmd/dspace-rest/cmd/cmdutil"
	"github.com/dspace/dspace-rest/internal/permission"
	"github.com/dspace/dspace-rest/internal/services/authz"
)

var addCmd = &cobra.Command{
	Use:   "add <subject> <object> <action>",
	Short: "Grant an action on an object",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cmdutil.NewStoreBundle()
		if err != nil {
			return err
		}
		defer store.Close()

		// Canonicalize the action name (read -> READ)
		action, err := permission.ParseAction(args[2])
		if err != nil {
			return err
		}
		p := authz.Policy{
			Subject:   args[0],
			Object:    args[1],
			Action:    string(action),
			Condition: conditionFlag,
		}
		// AutoSave persists the rule; a running server picks it up on SIGHUP
		added, err := store.Policies.AddPolicy(context.Background(), p)
		if err != nil {
			return err
		}
		if !added {
			fmt.Printf("Policy %s already exists\n", p.ID())
			return nil
		}
		fmt.Printf("Policy %s added\n", p.ID())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List resource policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cmdutil.NewStoreBundle()
		if err != nil {
			return err
		}
		defer store.Close()

		policies, err := store.Policies.ListPolicies(context.Background(), objectFlag)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSUBJECT\tOBJECT\tACTION\tCONDITION")
		for _, p := range policies {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID(), p.Subject, p.Object, p.Action, p.Condition)
		}
		return w.Flush()
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a resource policy by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cmdutil.NewStoreBundle()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		// Policy IDs are derived from the rule, so look the rule up first
		p, err := store.Policies.FindPolicy(ctx, args[0])
		if err != nil {
			return err
		}
		if _, err := store.Policies.RemovePolicy(ctx, *p); err != nil {
			return err
		}
		fmt.Printf("Policy %s removed\n", args[0])
		return nil
	},
}
