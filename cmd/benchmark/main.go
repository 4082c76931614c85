// Benchmark tool for load testing the Lendscore prediction service.
//
// Usage:
//
//	go run ./cmd/benchmark -csv /path/to/applicants.csv -url http://localhost:5000
//	go run ./cmd/benchmark -random 5000 -url http://localhost:5000
//
// This tool:
//  1. Reads applicants from a CSV (optionally labelled with "defaulted") or
//     generates random ones
//  2. Maps each applicant to the service's columns and calls /predict
//  3. Compares the eligibility verdict with the default labels when present
//  4. Reports latency, throughput, score distribution and a confusion matrix
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/lendscore/internal/client"
	"github.com/opensource-finance/lendscore/internal/domain"
	"github.com/opensource-finance/lendscore/internal/features"
	"github.com/opensource-finance/lendscore/internal/scorecard"
)

// Applicant is one benchmark row. Defaulted is nil for unlabelled rows.
type Applicant struct {
	Input     domain.ApplicantInput
	Defaulted *bool
}

// Metrics tracks benchmark results
type Metrics struct {
	// Positive means "not eligible" / "defaulted".
	TruePositives  int64
	FalsePositives int64
	TrueNegatives  int64
	FalseNegatives int64

	TotalProcessed int64
	TotalLabelled  int64
	TotalEligible  int64
	TotalErrors    int64

	ProcessingTimeMs int64

	mu     sync.Mutex
	scores [7]int64 // 300-399 ... 800-900
}

func (m *Metrics) observeScore(score int) {
	bucket := (score - scorecard.MinScore) / 100
	bucket = max(0, min(bucket, len(m.scores)-1))
	m.mu.Lock()
	m.scores[bucket]++
	m.mu.Unlock()
}

func main() {
	csvPath := flag.String("csv", "", "Path to an applicants CSV file")
	random := flag.Int("random", 0, "Generate this many random applicants instead of reading a CSV")
	seed := flag.Uint64("seed", 42, "Seed for random applicants")
	baseURL := flag.String("url", "http://localhost:5000", "Prediction service base URL")
	limit := flag.Int("limit", 10000, "Maximum applicants to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "Per-request timeout")
	verbose := flag.Bool("verbose", false, "Print each applicant result")
	flag.Parse()

	if *csvPath == "" && *random <= 0 {
		fmt.Println("Usage: benchmark -csv /path/to/applicants.csv | -random N [-url http://localhost:5000]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("+---------------------------------------------------------------+")
	fmt.Println("|            LENDSCORE BENCHMARK - Prediction Service           |")
	fmt.Println("+---------------------------------------------------------------+")
	fmt.Printf("\nService URL: %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	c := client.New(*baseURL, *timeout)
	ctx := context.Background()

	status, err := c.Status(ctx)
	if err != nil {
		fmt.Printf("ERROR: service not ready at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the service is running:")
		fmt.Println("  go run ./cmd/lendscore-api")
		os.Exit(1)
	}
	fmt.Printf("OK  %s\n", status.Message)

	columns, err := c.Columns(ctx)
	if err != nil {
		fmt.Printf("ERROR: failed to fetch columns: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK  %d columns\n", len(columns))

	var applicants []Applicant
	if *csvPath != "" {
		fmt.Printf("\nReading applicants from %s...\n", *csvPath)
		applicants, err = readApplicantsCSV(*csvPath, *limit)
		if err != nil {
			fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
			os.Exit(1)
		}
	} else {
		applicants = randomApplicants(*random, *seed)
	}
	fmt.Printf("OK  %d applicants\n", len(applicants))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(ctx, c, applicants, columns, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

// readApplicantsCSV reads rows keyed by header names matching the JSON
// field names of domain.ApplicantInput, plus an optional "defaulted" label.
func readApplicantsCSV(path string, limit int) ([]Applicant, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	field := func(record []string, name string) string {
		if i, ok := colIndex[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	num := func(record []string, name string) float64 {
		f, _ := strconv.ParseFloat(field(record, name), 64)
		return f
	}

	var applicants []Applicant
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		in := domain.ApplicantInput{
			CIBILScore:           int(num(record, "cibil")),
			Age:                  int(num(record, "age")),
			YearsEmployed:        int(num(record, "emp")),
			AnnualIncome:         num(record, "income"),
			LoanAmount:           num(record, "loan_amount"),
			Annuity:              num(record, "annuity"),
			PreviousLoanCount:    int(num(record, "prev_loan_count")),
			PreviousOutstanding:  num(record, "prev_outstanding_amt"),
			PreviousRemainingEMI: int(num(record, "prev_remaining_emi")),
		}
		in.HasPreviousLoans = in.PreviousLoanCount > 0

		a := Applicant{Input: in}
		if label := field(record, "defaulted"); label != "" {
			d := label == "1" || strings.EqualFold(label, "true")
			a.Defaulted = &d
		}
		applicants = append(applicants, a)

		if limit > 0 && len(applicants) >= limit {
			break
		}
	}

	return applicants, nil
}

func randomApplicants(n int, seed uint64) []Applicant {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	applicants := make([]Applicant, n)
	for i := range applicants {
		income := float64(200000 + rng.IntN(1800000))
		in := domain.ApplicantInput{
			CIBILScore:    domain.MinApplicantCIBIL + rng.IntN(domain.MaxApplicantCIBIL-domain.MinApplicantCIBIL+1),
			Age:           domain.MinApplicantAge + rng.IntN(50),
			YearsEmployed: rng.IntN(30),
			AnnualIncome:  income,
			LoanAmount:    income * (0.5 + rng.Float64()*6),
			Annuity:       income * (0.01 + rng.Float64()*0.06),
		}
		if rng.IntN(2) == 0 {
			in.HasPreviousLoans = true
			in.PreviousLoanCount = 1 + rng.IntN(5)
			in.PreviousOutstanding = income * rng.Float64() * 3
			in.PreviousRemainingEMI = rng.IntN(60)
		}
		applicants[i] = Applicant{Input: in}
	}
	return applicants
}

func runBenchmark(ctx context.Context, c *client.Client, applicants []Applicant, columns []string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Applicant, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for a := range work {
				in := a.Input.Normalize()
				start := time.Now()
				result, err := c.Predict(ctx, features.MapToFullPayload(in, columns))
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: cibil=%d age=%d -> %v\n", in.CIBILScore, in.Age, err)
					}
					continue
				}

				eligible := scorecard.IsEligible(result.CreditScore)
				metrics.observeScore(result.CreditScore)
				if eligible {
					atomic.AddInt64(&metrics.TotalEligible, 1)
				}

				if a.Defaulted != nil {
					atomic.AddInt64(&metrics.TotalLabelled, 1)
					predicted := !eligible
					actual := *a.Defaulted

					if predicted && actual {
						atomic.AddInt64(&metrics.TruePositives, 1)
					} else if predicted && !actual {
						atomic.AddInt64(&metrics.FalsePositives, 1)
					} else if !predicted && !actual {
						atomic.AddInt64(&metrics.TrueNegatives, 1)
					} else {
						atomic.AddInt64(&metrics.FalseNegatives, 1)
					}
				}

				if verbose {
					fmt.Printf("cibil=%3d age=%3d income=%12.2f loan=%12.2f | p=%.4f score=%3d eligible=%v\n",
						in.CIBILScore,
						in.Age,
						in.AnnualIncome,
						in.LoanAmount,
						result.ProbabilityOfDefault,
						result.CreditScore,
						eligible,
					)
				}
			}
		}()
	}

	for _, a := range applicants {
		work <- a
	}
	close(work)

	wg.Wait()

	return metrics
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n+---------------------------------------------------------------+")
	fmt.Println("|                      BENCHMARK RESULTS                        |")
	fmt.Println("+---------------------------------------------------------------+")

	fmt.Printf("\nDATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Eligible:         %d\n", m.TotalEligible)
	fmt.Printf("   Labelled:         %d\n", m.TotalLabelled)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nSCORE DISTRIBUTION\n")
	for i, n := range m.scores {
		lo := scorecard.MinScore + i*100
		hi := lo + 99
		if i == len(m.scores)-1 {
			hi = scorecard.MaxScore
		}
		fmt.Printf("   %3d-%3d  %8d\n", lo, hi, n)
	}

	if m.TotalLabelled > 0 {
		fmt.Printf("\nCONFUSION MATRIX\n")
		fmt.Println("                        Predicted")
		fmt.Println("                 Not eligible   Eligible")
		fmt.Println("              +--------------+----------+")
		fmt.Printf("   Actual  D  | %12d | %8d |  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
		fmt.Println("              +--------------+----------+")
		fmt.Printf("          ND  | %12d | %8d |  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
		fmt.Println("              +--------------+----------+")

		precision := float64(0)
		if m.TruePositives+m.FalsePositives > 0 {
			precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
		}

		recall := float64(0)
		if m.TruePositives+m.FalseNegatives > 0 {
			recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
		}

		f1 := float64(0)
		if precision+recall > 0 {
			f1 = 2 * (precision * recall) / (precision + recall)
		}

		accuracy := float64(m.TruePositives+m.TrueNegatives) / float64(m.TotalLabelled)

		fmt.Printf("\nDETECTION METRICS\n")
		fmt.Printf("   Precision:  %.4f  (of rejections, how many defaulted)\n", precision)
		fmt.Printf("   Recall:     %.4f  (of defaults, how many were rejected)\n", recall)
		fmt.Printf("   F1-Score:   %.4f\n", f1)
		fmt.Printf("   Accuracy:   %.4f\n", accuracy)
	}

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f req/sec\n", rps)
	}

	fmt.Println()
}
