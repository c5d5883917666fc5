package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/coffee-pos/internal/telemetry"
)

// checkout_stress fills the cart of a running terminal and fires concurrent
// checkouts at it. Exactly one should be accepted per round.
func main() {
	addr := flag.String("addr", "http://localhost:8090", "terminal HTTP address")
	productID := flag.Int64("product", 1, "product to put in the cart")
	rounds := flag.Int("rounds", 5, "number of rounds")
	concurrency := flag.Int("concurrency", 20, "concurrent checkouts per round")
	flag.Parse()

	log := telemetry.NewLogger("info")
	client := &http.Client{Timeout: 30 * time.Second}

	var accepted, rejected, failed atomic.Int32
	start := time.Now()

	for round := 0; round < *rounds; round++ {
		if err := addItem(client, *addr, *productID); err != nil {
			log.Fatalf("round %d: add item: %v", round, err)
		}

		var wg sync.WaitGroup
		for i := 0; i < *concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				resp, err := client.Post(*addr+"/api/checkout", "application/json", nil)
				if err != nil {
					failed.Add(1)
					return
				}
				resp.Body.Close()

				switch resp.StatusCode {
				case http.StatusOK:
					accepted.Add(1)
				case http.StatusConflict, http.StatusBadRequest:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}()
		}
		wg.Wait()
	}

	elapsed := time.Since(start)

	log.WithFields(logrus.Fields{
		"rounds":   *rounds,
		"accepted": accepted.Load(),
		"rejected": rejected.Load(),
		"failed":   failed.Load(),
		"elapsed":  elapsed.String(),
	}).Info("stress test finished")

	if int(accepted.Load()) != *rounds {
		log.Warnf("expected %d accepted checkouts, got %d", *rounds, accepted.Load())
	}
}

func addItem(client *http.Client, addr string, productID int64) error {
	body, _ := json.Marshal(map[string]int64{"product_id": productID})

	resp, err := client.Post(addr+"/api/cart/items", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
