package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storefront/pkg/importer"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `Usage: importctl <command> [args]

Commands:
  submit <baseURL> <token> <storeID> <file>   Submit a catalog and watch it
  list <baseURL> <token> [storeID]            List import jobs
  cancel <baseURL> <token> <jobID>            Cancel a pending import
  template <baseURL> <token> <destPath>       Download the CSV template
`

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 4 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]
	client := importer.New(os.Args[2], os.Args[3])
	ctx := context.Background()

	switch command {
	case "submit":
		if len(os.Args) < 6 {
			fmt.Print(usage)
			os.Exit(1)
		}
		runSubmit(ctx, client, os.Args[4], os.Args[5])

	case "list":
		storeID := ""
		if len(os.Args) > 4 {
			storeID = os.Args[4]
		}
		runList(ctx, client, storeID)

	case "cancel":
		if len(os.Args) < 5 {
			fmt.Print(usage)
			os.Exit(1)
		}
		cancelled, err := client.Cancel(ctx, os.Args[4])
		if err != nil {
			log.Fatal().Err(err).Msg("Cancel failed")
		}
		if cancelled {
			fmt.Println("Import cancelled")
		} else {
			fmt.Println("Import was no longer pending, nothing cancelled")
		}

	case "template":
		if len(os.Args) < 5 {
			fmt.Print(usage)
			os.Exit(1)
		}
		if err := client.DownloadTemplate(ctx, os.Args[4]); err != nil {
			log.Fatal().Err(err).Msg("Template download failed")
		}
		fmt.Println("Template written to", os.Args[4])

	default:
		fmt.Print(usage)
		os.Exit(1)
	}
}

func runSubmit(ctx context.Context, client *importer.Client, storeID, path string) {
	file, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Could not open file")
	}
	defer file.Close()

	outcome := client.Submit(ctx, storeID, file.Name(), file, importer.ImportConfig{
		CreateCategories: true,
	})
	if !outcome.Success {
		log.Fatal().Str("error", outcome.Error).Msg("Submission failed")
	}

	fmt.Println("Job:", outcome.JobID)

	result := client.Watch(ctx, outcome.JobID, func(p importer.ImportProgress) {
		if p.CurrentItem != "" {
			fmt.Printf("[%3d%%] %s (%s)\n", p.Percentage, p.Message, p.CurrentItem)
		} else {
			fmt.Printf("[%3d%%] %s\n", p.Percentage, p.Message)
		}
	})

	switch result.Kind {
	case importer.OutcomeCompleted:
		fmt.Printf("Done: %d total, %d imported, %d failed\n",
			result.Result.Total, result.Result.Successful, result.Result.Failed)
		for _, entry := range result.Result.Logs {
			if entry.Status != "success" {
				fmt.Printf("  row %d (%s): %s — %s\n", entry.RowNumber, entry.ProductName, entry.Status, entry.Message)
			}
		}
	case importer.OutcomeCancelled:
		fmt.Println("Import was cancelled before processing began")
	case importer.OutcomeTimedOut:
		fmt.Println("Gave up waiting; the import may still finish on the server")
	default:
		log.Fatal().Str("error", result.Error).Msg("Import failed")
	}
}

func runList(ctx context.Context, client *importer.Client, storeID string) {
	outcome := client.ListImports(ctx, storeID)
	if !outcome.Success {
		log.Fatal().Str("error", outcome.Error).Msg("Listing failed")
	}

	for _, job := range outcome.Jobs {
		created, _ := time.Parse(time.RFC3339, job.CreatedAt)
		fmt.Printf("%s  %-10s  %4d/%4d rows  %s  %s\n",
			job.ID, job.Status, job.ProcessedProducts, job.TotalProducts,
			created.Format("2006-01-02 15:04"), job.Filename)
	}
}
