package users

import (
	"bufio"
	"context"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dspace/dspace-rest/cmd/dspace-rest/cmd/cmdutil"
	"github.com/dspace/dspace-rest/internal/auth"
	"github.com/dspace/dspace-rest/internal/db/models"
	"github.com/dspace/dspace-rest/internal/repository"
	"github.com/dspace/dspace-rest/internal/services/authn"
)

var (
	emailFlag     string
	firstNameFlag string
	lastNameFlag  string
	passwordFlag  string
	stdinFlag     bool
	adminFlag     bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an EPerson that logs in with a password",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate required flags
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		// Get password from flag or stdin
		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		// Connect to database
		store, err := cmdutil.NewStoreBundle()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		email := strings.ToLower(strings.TrimSpace(emailFlag))

		// Check if email already exists
		existing, err := store.EPersons.GetByEmail(ctx, email)
		if err != nil && !repository.IsNotFound(err) {
			return fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("eperson with email %q already exists", email)
		}

		// Hash password with bcrypt
		hash, err := authn.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		// Create eperson
		eperson := &models.EPerson{
			Email:        email,
			FirstName:    firstNameFlag,
			LastName:     lastNameFlag,
			PasswordHash: &hash,
			CanLogIn:     true,
		}
		if err := store.EPersons.Create(ctx, eperson); err != nil {
			return fmt.Errorf("failed to create eperson: %w", err)
		}

		// Grant site administration through group membership
		if adminFlag {
			if err := store.Groups.AddMember(ctx, auth.GroupAdministrator, eperson.ID); err != nil {
				return fmt.Errorf("failed to add eperson to %s: %w", auth.GroupAdministrator, err)
			}
		}

		fmt.Println("EPerson created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("ID: %s\n", eperson.ID)
		fmt.Printf("Email: %s\n", eperson.Email)
		fmt.Printf("Name: %s\n", eperson.FullName())
		if adminFlag {
			fmt.Printf("Groups: %s\n", auth.GroupAdministrator)
		}
		fmt.Println("----------------------------------------")
		return nil
	},
}
