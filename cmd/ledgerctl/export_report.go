package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go-stock-ledger/internal/export"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"

	"github.com/google/subcommands"
)

type exportReportCmd struct {
	out string
}

func (*exportReportCmd) Name() string     { return "export-report" }
func (*exportReportCmd) Synopsis() string { return "write the inventory report as an xlsx workbook" }
func (*exportReportCmd) Usage() string {
	return `export-report [-out inventory.xlsx]
`
}

func (c *exportReportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "out", "inventory.xlsx", "output file")
}

func (c *exportReportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, log, db, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	reports := service.NewReportService(repository.NewProductRepo(db), repository.NewTransactionRepo(db), db)
	report, err := reports.GenerateReport(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		return subcommands.ExitFailure
	}

	f, err := os.Create(c.out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	if err := export.WriteInventoryReport(f, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing workbook: %v\n", err)
		return subcommands.ExitFailure
	}
	log.WithField("file", c.out).Info("inventory report written")
	return subcommands.ExitSuccess
}
