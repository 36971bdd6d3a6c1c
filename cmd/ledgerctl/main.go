package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&auditCmd{}, "ledger")
	commander.Register(&exportReportCmd{}, "ledger")
	commander.Register(&resetPasswordCmd{}, "users")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
