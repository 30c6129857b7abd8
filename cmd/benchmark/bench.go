// Command benchmark load-tests the grade route against an in-process fake
// vision vendor.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort  = 9091
	appPort   = 8081
	debugAddr = "127.0.0.1:6060"
)

// 1x1 transparent png
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

var gradeResp = []byte(`{"id":"bench-1","choices":[{"message":{"role":"assistant","content":"Score: 8/10. Legible and correct."}}]}`)

// vendorHits counts requests per path so probe overhead is visible.
var vendorHits sync.Map

func main() {
	duration := flag.Duration("duration", 10*time.Second, "duration of the attack")
	rate := flag.Int("rate", 50, "requests per second")
	vendorLatency := flag.Duration("vendor-latency", 20*time.Millisecond, "simulated model latency")
	flaky := flag.Float64("flaky", 0, "fraction of vendor responses that are 503")
	chaos := flag.Bool("chaos", false, "simulate random client disconnections")
	flag.Parse()

	go startMockVendor(*vendorLatency, *flaky)

	fmt.Println("Building server...")
	build := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	configFile := "bench_config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0o644); err != nil {
		log.Fatalf("failed to write config: %v", err)
	}
	defer os.Remove(configFile)

	fmt.Println("Starting server...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(),
		"CONFIG_FILE="+configFile,
		fmt.Sprintf("SERVER_PORT=%d", appPort),
		"SERVER_DEBUG_ADDR="+debugAddr,
		"LOG_LEVEL=error",
	)

	logFile, err := os.Create("bench_server.log")
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	base := fmt.Sprintf("http://localhost:%d", appPort)
	waitForApp(base + "/health")

	// first call probes and caches the strategy; the attack measures the
	// cached path
	warmup()

	done := make(chan struct{})
	go func() {
		time.Sleep(time.Second)
		monitorResources(cmd.Process.Pid, done)
	}()

	gradeURL := base + "/v1/slots/first/grade"
	body, _ := json.Marshal(map[string]string{
		"prompt": "Grade this answer out of 10",
		"image":  tinyPNG,
	})

	if *chaos {
		concurrency := min(max(*rate/10, 5), 50)
		fmt.Printf("CHAOS MODE: %d disrupters\n", concurrency)
		go startChaosMonkey(gradeURL, body, concurrency, done)
	}

	fmt.Printf("Attacking %s for %s at %d req/s\n", gradeURL, *duration, *rate)

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: http.MethodPost,
		URL:    gradeURL,
		Body:   body,
		Header: http.Header{"Content-Type": []string{"application/json"}},
	})

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "grade") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("Status codes:    ", metrics.StatusCodes)
	fmt.Println("Vendor hits:")
	vendorHits.Range(func(k, v any) bool {
		fmt.Printf("  %-28s %d\n", k, v.(*atomic.Int64).Load())
		return true
	})
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error set (first 5 unique):")
		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if len(seen) == 5 {
				break
			}
			if !seen[msg] {
				fmt.Println(msg)
				seen[msg] = true
			}
		}
	}

	os.Remove("bench.db")
}

func warmup() {
	body := strings.NewReader(`{"prompt":"warmup","image":"` + tinyPNG + `"}`)
	resp, err := http.Post(fmt.Sprintf("http://localhost:%d/v1/slots/first/grade", appPort), "application/json", body)
	if err != nil {
		log.Fatalf("warmup failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("warmup returned %d; see bench_server.log", resp.StatusCode)
	}
}

func startMockVendor(latency time.Duration, flaky float64) {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		counter, _ := vendorHits.LoadOrStore(r.URL.Path, new(atomic.Int64))
		counter.(*atomic.Int64).Add(1)

		// only the OpenAI-style suffix exists, so the probe has to walk
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if flaky > 0 && rand.Float64() < flaky {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		time.Sleep(latency)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(gradeResp)
	})

	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func startChaosMonkey(url string, body []byte, concurrency int, done chan struct{}) {
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{}

			for {
				select {
				case <-done:
					return
				default:
				}

				timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
				req.Header.Set("Content-Type", "application/json")

				if resp, err := client.Do(req); err == nil {
					resp.Body.Close()
				}
				cancel()

				time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
			}
		}()
	}
	wg.Wait()
}

func monitorResources(pid int, done chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	fmt.Println("\n--- Resource usage (expvar + ps) ---")
	fmt.Printf("%-10s %-10s %-10s %-10s\n", "Time", "Heap(MB)", "Alloc(MB)", "CPU(%)")

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			resp, err := http.Get("http://" + debugAddr + "/debug/vars")
			if err != nil {
				continue
			}

			var vars struct {
				MemStats struct {
					HeapInuse uint64 `json:"HeapInuse"`
					Alloc     uint64 `json:"Alloc"`
				} `json:"memstats"`
			}
			err = json.NewDecoder(resp.Body).Decode(&vars)
			resp.Body.Close()
			if err != nil {
				continue
			}

			cpu := 0.0
			if out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "%cpu").Output(); err == nil {
				lines := strings.Split(strings.TrimSpace(string(out)), "\n")
				if len(lines) >= 2 {
					cpu, _ = strconv.ParseFloat(strings.TrimSpace(lines[1]), 64)
				}
			}

			fmt.Printf("%-10s %-10.2f %-10.2f %-10.2f\n",
				time.Now().Format("15:04:05"),
				float64(vars.MemStats.HeapInuse)/1024/1024,
				float64(vars.MemStats.Alloc)/1024/1024,
				cpu,
			)
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("server did not become healthy")
}

var benchConfig = fmt.Sprintf(`
server:
  env: development
log:
  level: error
rate_limit:
  requests_per_second: 0
store:
  enabled: true
  dsn: "file:bench.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000"
slots:
  first:
    base_url: "http://localhost:%d"
    api_key: "sk-bench"
    model_id: "bench-vision"
`, mockPort)
