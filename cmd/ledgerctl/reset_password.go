package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go-stock-ledger/internal/repository"

	"github.com/google/subcommands"
	"github.com/google/uuid"
)

type resetPasswordCmd struct {
	email    string
	password string
}

func (*resetPasswordCmd) Name() string     { return "reset-password" }
func (*resetPasswordCmd) Synopsis() string { return "set a user's password without the old one" }
func (*resetPasswordCmd) Usage() string {
	return `reset-password [-email admin@example.com] -password <new password>

  Also ends the user's current session.
`
}

func (c *resetPasswordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "user email (defaults to ADMIN_EMAIL)")
	f.StringVar(&c.password, "password", "", "new password, at least 6 characters (required)")
}

func (c *resetPasswordCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if len(c.password) < 6 {
		fmt.Fprintln(os.Stderr, "Error: -password must be at least 6 characters.")
		return subcommands.ExitUsageError
	}

	cfg, log, db, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	email := c.email
	if email == "" {
		email = cfg.AdminEmail
	}

	users := repository.NewUserRepo(db)
	user, err := users.FindByEmail(email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: user %s not found: %v\n", email, err)
		return subcommands.ExitFailure
	}

	if err := user.SetPassword(c.password); err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		return subcommands.ExitFailure
	}
	user.TokenVersion = uuid.New().String()
	user.UpdatedBy = "ledgerctl"
	if err := users.Update(user); err != nil {
		fmt.Fprintf(os.Stderr, "Error updating user: %v\n", err)
		return subcommands.ExitFailure
	}

	log.WithField("email", email).Info("password reset")
	return subcommands.ExitSuccess
}
