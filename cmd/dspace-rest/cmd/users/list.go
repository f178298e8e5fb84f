package users

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dspace/dspace-rest/cmd/dspace-rest/cmd/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List EPersons with their groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := cmdutil.NewStoreBundle()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		epersons, err := store.EPersons.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list epersons: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tCAN_LOG_IN\tGROUPS")
		for _, e := range epersons {
			groups, err := store.Groups.GroupNamesForEPerson(ctx, e.ID)
			if err != nil {
				return fmt.Errorf("failed to list groups for eperson '%s': %w", e.ID, err)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
				e.ID,
				e.Email,
				e.FullName(),
				e.CanLogIn,
				strings.Join(groups, ", "),
			)
		}
		return w.Flush()
	},
}
