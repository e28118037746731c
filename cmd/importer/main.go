package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"weather-lookup/internal/config"
	"weather-lookup/internal/geocoder"
	"weather-lookup/internal/logging"
	"weather-lookup/internal/metrics"
	"weather-lookup/internal/models"
	"weather-lookup/internal/repository"
	"weather-lookup/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// Resolver runs the location workflow for one address.
type Resolver interface {
	Resolve(ctx context.Context, addr models.Address) (*service.Resolution, error)
}

// Summary counts the outcome of an import.
type Summary struct {
	Created int
	Reused  int
	Failed  map[models.Reason]int
}

func main() {
	file := flag.String("file", "", "Path to a CSV file of street,city,state,zip rows")
	flag.Parse()

	if *file == "" {
		fmt.Println("Error: --file flag is required")
		os.Exit(1)
	}

	fmt.Printf("Starting import from file: %s\n", *file)

	f, err := os.Open(*file)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	addresses, err := parseCSV(f)
	if err != nil {
		fmt.Printf("Error parsing CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Parsed %d addresses\n", len(addresses))

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Setup(cfg.LogLevel, "console"); err != nil {
		fmt.Printf("Error setting up logging: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DBSource)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Printf("Error creating table: %v\n", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.NewRegistry())
	census := geocoder.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderBenchmark, cfg.UpstreamTimeout, m)
	locations := service.NewLocationService(repo, census, clockwork.NewRealClock(), m)

	summary := importAddresses(ctx, locations, addresses, os.Stdout)
	fmt.Printf("Done: %d created, %d reused, %d failed\n", summary.Created, summary.Reused, summary.FailedTotal())
}

// FailedTotal is the number of rows that did not resolve.
func (s Summary) FailedTotal() int {
	n := 0
	for _, c := range s.Failed {
		n += c
	}
	return n
}

func parseCSV(r io.Reader) ([]models.Address, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var addresses []models.Address
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		line++

		if len(record) < 4 {
			return nil, fmt.Errorf("line %d: invalid record length: %d, expected 4 columns", line, len(record))
		}
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}

		addresses = append(addresses, models.Address{
			Street: record[0],
			City:   record[1],
			State:  record[2],
			Zip:    record[3],
		})
	}

	return addresses, nil
}

func importAddresses(ctx context.Context, resolver Resolver, addresses []models.Address, out io.Writer) Summary {
	summary := Summary{Failed: make(map[models.Reason]int)}

	for i, addr := range addresses {
		res, err := resolver.Resolve(ctx, addr)
		if err != nil {
			reason, ok := models.ReasonOf(err)
			if !ok {
				reason = models.ReasonUpstream
			}
			summary.Failed[reason]++
			fmt.Fprintf(out, "%d\tFAILED\t%s\t%v\n", i+1, reason, err)
			continue
		}

		status := "CREATED"
		if res.Reused {
			status = "REUSED"
			summary.Reused++
		} else {
			summary.Created++
		}
		fmt.Fprintf(out, "%d\t%s\t%d\t%s\n", i+1, status, res.Location.ID, res.Location.FormattedAddress())
	}

	return summary
}
