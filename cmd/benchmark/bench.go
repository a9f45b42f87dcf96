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
	"strings"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
)

var (
	streamChunks = [][]byte{
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Bench\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\"mark\"}}]}\n\n"),
		[]byte("data: [DONE]\n\n"),
	}
	unaryResp = []byte(`{"id":"bench-123","choices":[{"message":{"content":"Hello"}}]}`)
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	stream := flag.Bool("stream", false, "Use streaming requests")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	flag.Parse()

	go startMockUpstream()

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SERVER_PORT=%d", appPort),
		"STORE_DSN=file:bench.db?_journal_mode=WAL&_busy_timeout=5000",
		"LOG_LEVEL=error",
	)

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/api/health", appPort))

	done := make(chan struct{})

	mode := "Unary"
	if *stream {
		mode = "Streaming"
	}
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", mode, *duration, *rate)

	// Inline upstream coordinates: no stored configuration needed.
	body := fmt.Sprintf(`{"baseUrl": "http://localhost:%d", "model": "bench-model", "apiKey": "bench-key", "stream": %t, "messages": [{"role": "user", "content": "Hello"}]}`, mockPort, *stream)

	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = fmt.Sprintf("http://localhost:%d/api/chat", appPort)
		t.Body = []byte(body)
		t.Header = http.Header{
			"Content-Type": []string{"application/json"},
		}
		return nil
	}

	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: clients will hang up mid-stream")
		go startChaosMonkey(fmt.Sprintf("http://localhost:%d/api/chat", appPort), mockPort, done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
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
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error set (first 5 unique):")
		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if len(seen) >= 5 {
				break
			}
			if !seen[msg] {
				fmt.Println(msg)
				seen[msg] = true
			}
		}
	}

	_ = os.Remove("bench.db")
}

func startChaosMonkey(url string, upstreamPort int, done chan struct{}) {
	const concurrency = 10
	var wg sync.WaitGroup
	wg.Add(concurrency)

	payload := fmt.Sprintf(`{"baseUrl": "http://localhost:%d", "model": "bench-model", "apiKey": "bench-key", "stream": true, "messages": [{"role": "user", "content": "Chaos"}]}`, upstreamPort)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{}
			for {
				select {
				case <-done:
					return
				default:
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond
					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, "POST", url, strings.NewReader(payload))
					req.Header.Set("Content-Type", "application/json")

					resp, err := client.Do(req)
					if err == nil {
						_ = resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
}

func startMockUpstream() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if val, ok := req["stream"].(bool); ok && val {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher, _ := w.(http.Flusher)
			for _, chunk := range streamChunks {
				time.Sleep(50 * time.Millisecond)
				_, _ = w.Write(chunk)
				flusher.Flush()
			}
			return
		}

		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})

	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == 200 {
			resp.Body.Close()
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}
