// Copyright (c) 2026 Khaled Abbas
//
// This source code is licensed under the Business Source License 1.1.
//
// Change Date: 4 years after the first public release of this version.
// Change License: MIT
//
// On the Change Date, this version of the code automatically converts
// to the MIT License. Prior to that date, use is subject to the
// Additional Use Grant. See the LICENSE file for details.

package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type createdTodo struct {
	ID   int64  `json:"id"`
	Todo string `json:"todo"`
}

type todo struct {
	ID        int64  `json:"id"`
	Todo      string `json:"todo"`
	Completed bool   `json:"completed"`
}

type phaseResult struct {
	name     string
	ok       int64
	failed   int64
	duration time.Duration
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func main() {
	requests := flag.Int("requests", 200, "Number of todos to create and update")
	concurrency := flag.Int("concurrency", 8, "Concurrent HTTP clients")
	dbHost := flag.String("db_host", "localhost", "Database host")
	apiHost := flag.String("api_host", "localhost", "Todo API host")
	apiPort := flag.String("api_port", "8080", "Todo API port")
	flag.Parse()

	if *requests <= 0 || *concurrency <= 0 {
		fmt.Printf("%s--requests and --concurrency must be positive%s\n", colorRed, colorReset)
		os.Exit(1)
	}

	// Load DB config from .env or defaults
	_ = godotenv.Load("../../.env")
	dbUser := envOr("POSTGRES_USER", "postgres")
	dbPass := envOr("POSTGRES_PASSWORD", "postgres")
	dbName := envOr("POSTGRES_DB", "todos")
	dbPort := envOr("POSTGRES_PORT", "5432")
	sslMode := envOr("POSTGRES_SSLMODE", "disable")

	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=%s",
		dbUser, dbPass, dbName, *dbHost, dbPort, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		fmt.Printf("%sFailed to connect to DB: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	defer db.Close()

	initialRows, err := countRows(db)
	if err != nil {
		fmt.Printf("%s[ERR]%s Could not count todos: %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://%s:%s/api/todos", *apiHost, *apiPort)
	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Printf("\n%s%s >> TODO API LOAD RUN: %d requests x %d clients << %s\n",
		colorCyan, colorBold, *requests, *concurrency, colorReset)

	var (
		idsMu sync.Mutex
		ids   []int64
	)

	create := runPhase("create", *requests, *concurrency, func(i int) error {
		var created createdTodo
		body := map[string]any{"todo": fmt.Sprintf("load task %d", i)}
		if err := doJSON(client, http.MethodPost, baseURL, body, &created); err != nil {
			return err
		}
		idsMu.Lock()
		ids = append(ids, created.ID)
		idsMu.Unlock()
		return nil
	})

	update := runPhase("update", len(ids), *concurrency, func(i int) error {
		var updated todo
		body := map[string]any{"todo": fmt.Sprintf("load task %d done", i), "completed": true}
		if err := doJSON(client, http.MethodPut, fmt.Sprintf("%s/%d", baseURL, ids[i]), body, &updated); err != nil {
			return err
		}
		if !updated.Completed {
			return fmt.Errorf("todo %d not completed after update", ids[i])
		}
		return nil
	})

	list := runPhase("list", *concurrency, *concurrency, func(int) error {
		var todos []todo
		return doJSON(client, http.MethodGet, baseURL, nil, &todos)
	})

	finalRows, err := countRows(db)
	if err != nil {
		fmt.Printf("%s[WARN]%s Could not count todos: %v\n", colorYellow, colorReset, err)
	}

	printReport([]phaseResult{create, update, list}, finalRows-initialRows, create.ok)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func countRows(db *sql.DB) (int64, error) {
	var n int64
	err := db.QueryRow("SELECT COUNT(*) FROM todos").Scan(&n)
	return n, err
}

func runPhase(name string, n, concurrency int, fn func(i int) error) phaseResult {
	res := phaseResult{name: name}
	if n == 0 {
		return res
	}

	var ok, failed atomic.Int64
	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(i); err != nil {
					failed.Add(1)
					fmt.Printf("\r%s[%s]%s %v\n", colorRed, name, colorReset, err)
					continue
				}
				ok.Add(1)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	res.ok, res.failed, res.duration = ok.Load(), failed.Load(), time.Since(start)
	fmt.Printf("%s[OK]%s %-8s %d ok, %d failed in %s\n", colorGreen, colorReset, name, res.ok, res.failed, res.duration.Truncate(time.Millisecond))
	return res
}

func doJSON(client *http.Client, method, url string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printReport(phases []phaseResult, rowDelta, created int64) {
	fmt.Println("\n" + colorCyan + colorBold + "┏━━━━━━━━━━━━━━━━━━━━━━ REPORT ━━━━━━━━━━━━━━━━━━━━━━┓" + colorReset)

	lineFmt := colorCyan + "┃" + colorReset + "  %-22s " + colorBold + "%-25s" + colorCyan + "┃" + colorReset

	for _, p := range phases {
		total := p.ok + p.failed
		rps := 0.0
		if p.duration > 0 {
			rps = float64(total) / p.duration.Seconds()
		}
		failedColor := colorGreen
		if p.failed > 0 {
			failedColor = colorRed
		}
		fmt.Printf(lineFmt+"\n", p.name+":", fmt.Sprintf("%.2f req/sec", rps))
		fmt.Printf(colorCyan+"┃"+"  %-22s "+failedColor+colorBold+"%-25s"+colorCyan+"┃"+colorReset+"\n", "  - Failed:", fmt.Sprintf("%d/%d", p.failed, total))
	}

	rowColor := colorGreen
	if rowDelta != created {
		rowColor = colorRed
	}
	fmt.Printf(colorCyan+"┃"+"  %-22s "+rowColor+colorBold+"%-25s"+colorCyan+"┃"+colorReset+"\n", "New rows in store:", fmt.Sprintf("%d (created %d)", rowDelta, created))

	fmt.Println(colorCyan + colorBold + "┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛" + colorReset)
}
