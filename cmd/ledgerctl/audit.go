package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"

	"github.com/google/subcommands"
)

type auditCmd struct{}

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "compare every product's quantity with its ledger" }
func (*auditCmd) Usage() string {
	return `audit

  Lists products whose quantity differs from the sum of their ledger deltas.
  Exits with status 1 when any are found.
`
}

func (*auditCmd) SetFlags(*flag.FlagSet) {}

func (*auditCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, log, db, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	reports := service.NewReportService(repository.NewProductRepo(db), repository.NewTransactionRepo(db), db)
	discrepancies, err := reports.Reconcile(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reconciling ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	if len(discrepancies) == 0 {
		log.Info("ledger consistent")
		return subcommands.ExitSuccess
	}
	for _, d := range discrepancies {
		fmt.Printf("%s\t%s\tquantity=%d\tledger=%d\n", d.ProductID, d.SKU, d.Quantity, d.LedgerSum)
	}
	return subcommands.ExitFailure
}
