package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	userCount   int
	bookCount   int
	loanDays    int
)

// Metrics
var (
	totalRequests uint64
	issued201     uint64 // Loans created
	returned200   uint64 // Loans returned
	conflict409   uint64 // Duplicate active loans
	noCopies422   uint64 // Availability exhausted
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8083", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&userCount, "users", 100, "Distinct user IDs to borrow as (user-1..user-N)")
	flag.IntVar(&bookCount, "books", 100, "Distinct book IDs to borrow (book-1..book-N)")
	flag.IntVar(&loanDays, "loan-days", 14, "Due date offset for issued loans")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// worker issues a loan and, when the issue succeeded, returns it
// straight away. Issue/return churn against a hot book is what
// surfaces availability drift: at the end of a clean run every
// issued loan has a matching return.
func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		userID, bookID := generateParticipants()

		payload := map[string]interface{}{
			"user_id":  userID,
			"book_id":  bookID,
			"due_date": time.Now().AddDate(0, 0, loanDays).Format(time.RFC3339),
		}
		body, _ := json.Marshal(payload)

		resp, err := client.Post(targetURL+"/api/v1/loans", "application/json", bytes.NewBuffer(body))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		var loanID string
		switch resp.StatusCode {
		case 201:
			atomic.AddUint64(&issued201, 1)
			var loan struct {
				ID string `json:"id"`
			}
			json.NewDecoder(resp.Body).Decode(&loan)
			loanID = loan.ID
		case 409:
			atomic.AddUint64(&conflict409, 1)
		case 422:
			atomic.AddUint64(&noCopies422, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()

		if loanID == "" {
			continue
		}

		retBody, _ := json.Marshal(map[string]string{"loan_id": loanID})
		retResp, err := client.Post(targetURL+"/api/v1/loans/returns", "application/json", bytes.NewBuffer(retBody))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		atomic.AddUint64(&totalRequests, 1)
		if retResp.StatusCode == 200 {
			atomic.AddUint64(&returned200, 1)
		} else {
			atomic.AddUint64(&failOther, 1)
		}
		retResp.Body.Close()
	}
}

func generateParticipants() (string, string) {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic fights over one book
		if rand.Float32() < 0.90 {
			return fmt.Sprintf("user-%d", rand.Intn(userCount)+1), "book-1"
		}
	}

	user := rand.Intn(userCount) + 1
	book := rand.Intn(bookCount) + 1
	return fmt.Sprintf("user-%d", user), fmt.Sprintf("book-%d", book)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	issued := atomic.LoadUint64(&issued201)
	returned := atomic.LoadUint64(&returned200)
	conflicts := atomic.LoadUint64(&conflict409)
	exhausted := atomic.LoadUint64(&noCopies422)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()

	results := map[string]interface{}{
		"workload":         workload,
		"duration_sec":     d.Seconds(),
		"total_requests":   total,
		"throughput_tps":   tps,
		"loans_issued":     issued,
		"loans_returned":   returned,
		"unreturned_drift": int64(issued) - int64(returned),
		"duplicate_aborts": conflicts,
		"copies_exhausted": exhausted,
		"errors":           fErr,
	}

	// Print JSON for the python plotter to consume
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
