package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/record"
	"github.com/marcelsud/webhook-relay/record/postgres"
	"github.com/rs/zerolog"
)

/* records - maintenance tool for the Postgres record store
 * Usage:
 *   go run ./cmd/records migrate
 *   go run ./cmd/records list <api-key> [limit]
 * Needs POSTGRES_DSN in the environment or .env
 */

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.PostgresDSN == "" {
		fmt.Println("❌ POSTGRES_DSN is not set")
		os.Exit(1)
	}

	ctx := context.Background()
	repo, err := postgres.NewRepository(cfg.PostgresDSN)
	if err != nil {
		fmt.Printf("❌ Error connecting to PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close(ctx)

	switch os.Args[1] {
	case "migrate":
		if err := repo.CreateTable(ctx); err != nil {
			fmt.Printf("❌ Error creating table: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ webhook_requests is ready")
	case "list":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		limit := record.DefaultListLimit
		if len(os.Args) > 3 {
			if n, err := strconv.Atoi(os.Args[3]); err == nil {
				limit = n
			}
		}
		list(ctx, record.NewService(repo, nil, zerolog.Nop()), os.Args[2], limit)
	default:
		usage()
		os.Exit(2)
	}
}

func list(ctx context.Context, s *record.Service, apiKey string, limit int) {
	recs, err := s.List(ctx, apiKey, limit)
	if err != nil {
		fmt.Printf("❌ Error listing records: %v\n", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		fmt.Println("   (no records yet)")
		return
	}
	for _, r := range recs {
		status := "-"
		if r.ResponseStatus != 0 {
			status = strconv.Itoa(r.ResponseStatus)
		}
		fmt.Printf("%s  %-7s %-40s %-12s %s  %s\n",
			r.ReceivedAt.Format("2006-01-02 15:04:05"),
			r.Method, r.URL, r.Outcome, status, r.Duration)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: records migrate | records list <api-key> [limit]")
}
