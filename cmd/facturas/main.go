package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/mrobles/facturas/internal/config"
	"github.com/mrobles/facturas/internal/db"
	"github.com/mrobles/facturas/internal/importer"
	"github.com/mrobles/facturas/internal/reports"
	"github.com/mrobles/facturas/internal/repository"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := flag.String("config", "facturas.conf", "path to the key/value configuration file")
	verbose := flag.Bool("v", false, "log store statements")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.LogPath != "" {
		log.SetOutput(&lumberjack.Logger{Filename: cfg.LogPath, MaxSize: 10, MaxBackups: 3})
	}

	conn, err := db.Open(cfg.StorePath, *verbose)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	version, err := db.EnsureSchema(conn)
	if err != nil {
		// Schema failures are fatal: nothing is retried automatically.
		log.Fatalf("schema: %v", err)
	}
	log.Printf("store %s at schema version %d", cfg.StorePath, version)

	repo := repository.New(conn)
	outcome, err := importer.ImportIfNeeded(cfg.LegacyPath, repo, cfg.Currency)
	if err != nil {
		log.Fatalf("legacy import: %v", err)
	}
	if outcome.Applied {
		fmt.Printf("legacy import: %s (%d imported, %d skipped)\n",
			outcome.Result, outcome.Imported, outcome.Skipped)
	}

	if err := run(repo, flag.Args()); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(repo *repository.Repository, args []string) error {
	if len(args) == 0 {
		return printSummary(repo, reports.ByClient)
	}
	switch args[0] {
	case "report":
		groupBy := reports.ByClient
		if len(args) > 1 {
			groupBy = reports.GroupBy(args[1])
		}
		return printSummary(repo, groupBy)
	case "annual":
		if len(args) < 2 {
			return fmt.Errorf("usage: facturas annual <year>")
		}
		year, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[1])
		}
		rows, err := reports.Annual(repo, year)
		if err != nil {
			return err
		}
		printRows(rows)
		return nil
	case "clients":
		clients, err := repo.ListClients(repository.ClientFilter{OrderBy: "name"})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTAX ID\tEMAIL")
		for _, c := range clients {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.TaxID, c.Email)
		}
		return w.Flush()
	case "invoices":
		invoices, err := repo.ListInvoices(repository.InvoiceFilter{OrderBy: "issue_date"})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tCLIENT\tSTATUS\tTOTAL")
		for _, inv := range invoices {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s %s\n",
				inv.ID, inv.IssueDate.Format("2006-01-02"), inv.Client.Name,
				inv.Status, inv.Total.String(), inv.Currency)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown command %q (expected report, annual, clients or invoices)", args[0])
	}
}

func printSummary(repo *repository.Repository, groupBy reports.GroupBy) error {
	rows, err := reports.Summarize(repo, reports.Range{}, groupBy)
	if err != nil {
		return err
	}
	printRows(rows)
	return nil
}

func printRows(rows []reports.AggregateRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tCOUNT\tTOTAL")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%s %s\n", r.Key, r.Count, r.Total.String(), r.Currency)
	}
	w.Flush()
}
