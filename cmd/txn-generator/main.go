package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
)

// commandRequest mirrors the fields the gateway expects for check and pay.
type commandRequest struct {
	TxnID       string   `json:"txn_id"`
	Account     string   `json:"account"`
	AccountType string   `json:"account_type"`
	Sum         *float64 `json:"sum,omitempty"`
	Agent       string   `json:"agent"`
	ServiceType string   `json:"service_type"`
}

var serviceTypes = []string{"buffet", "diningroom"}

func main() {
	// 1. Setting up flags
	targetURL := flag.String("target", "http://localhost:3000/food", "Base URL of the gateway food routes")
	rps := flag.Int("rps", 20, "Requests per second")
	payShare := flag.Float64("pay-share", 0.3, "Share of pay commands, the rest are check")
	user := flag.String("user", os.Getenv("USER"), "Basic auth user")
	pass := flag.String("pass", os.Getenv("PASS"), "Basic auth password")
	flag.Parse()

	interval, err := tickInterval(*rps)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Starting generator: target=%s, rps=%d\n", *targetURL, *rps)

	client := &http.Client{Timeout: 15 * time.Second}
	base := strings.TrimRight(*targetURL, "/")

	// 2. Managing the request frequency via ticker
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 3. Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Main loop
	for {
		select {
		case <-ticker.C:
			path, req := "/check", newCheck()
			if rand.Float64() < *payShare {
				path, req = "/pay", newPay()
			}
			// Start sending in a goroutine so as not to block the ticker
			go sendRequest(ctx, client, base+path, *user, *pass, req)
		case <-ctx.Done():
			log.Println("Shutting down generator...")
			return
		}
	}
}

// tickInterval spaces requests evenly. Rates above 1e9 are clamped to one tick per nanosecond.
func tickInterval(rps int) (time.Duration, error) {
	if rps <= 0 {
		return 0, fmt.Errorf("rps must be positive, got %d", rps)
	}
	if d := time.Second / time.Duration(rps); d > 0 {
		return d, nil
	}
	return time.Nanosecond, nil
}

// fakeTxnID turns a random UUID into a positive integer of at most 20 digits.
func fakeTxnID() string {
	id := uuid.New()
	return strconv.FormatUint(binary.BigEndian.Uint64(id[:8]), 10)
}

func newCheck() commandRequest {
	return commandRequest{
		TxnID:       fakeTxnID(),
		Account:     faker.CCNumber(),
		AccountType: "card",
		Agent:       faker.Username(),
		ServiceType: serviceTypes[rand.Intn(len(serviceTypes))],
	}
}

func newPay() commandRequest {
	sum := float64(rand.Intn(100000)) / 100.0
	return commandRequest{
		TxnID:       fakeTxnID(),
		Account:     strconv.Itoa(100000 + rand.Intn(900000)),
		AccountType: "ls",
		Sum:         &sum,
		Agent:       faker.Username(),
		ServiceType: serviceTypes[rand.Intn(len(serviceTypes))],
	}
}

func sendRequest(ctx context.Context, client *http.Client, url, user, pass string, reqData commandRequest) {
	body, err := json.Marshal(reqData)
	if err != nil {
		log.Printf("ERROR: failed to marshal request: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("ERROR: failed to build request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(user, pass)

	// Sending a request
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("ERROR: failed to send request: %v", err)
		return
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body : %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Printf("WARN: %s received non-200 status code: %d", url, resp.StatusCode)
	} else {
		log.Printf("INFO: %s txn_id=%s, status: %d", url, reqData.TxnID, resp.StatusCode)
	}
}
