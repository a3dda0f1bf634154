// mock-device simulates an edge device for local development: it posts
// synthetic encrypted telemetry batches at a steady cadence and periodically
// asks the engine for a threat assessment.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type uploadPayload struct {
	DeviceID      string  `json:"device_id"`
	EncryptedData string  `json:"encrypted_data"`
	BatchStart    float64 `json:"batch_start"`
	BatchEnd      float64 `json:"batch_end"`
	SampleCount   int     `json:"sample_count"`
}

type analysisPayload struct {
	DeviceID       string  `json:"device_id"`
	TimeRangeHours float64 `json:"time_range_hours"`
}

func main() {
	var (
		baseURL  string
		deviceID string
		interval time.Duration
		gapEvery int
	)
	flag.StringVar(&baseURL, "addr", "http://localhost:8080", "Analysis engine base URL")
	flag.StringVar(&deviceID, "device", "dev-local-1", "Anonymous device identifier")
	flag.DurationVar(&interval, "interval", 10*time.Second, "Delay between uploads")
	flag.IntVar(&gapEvery, "gap-every", 0, "Skip an interval every N uploads to simulate interference (0 disables)")
	flag.Parse()

	logger := log.New(log.Writer(), "mock-device ", log.LstdFlags|log.Lmicroseconds)
	client := &http.Client{Timeout: 10 * time.Second}

	batchEnd := float64(time.Now().Unix())
	for i := 1; ; i++ {
		gap := interval.Seconds()
		if gapEvery > 0 && i%gapEvery == 0 {
			gap *= 20
			logger.Printf("simulating telemetry gap of %.0fs", gap)
		}
		batchStart := batchEnd + gap
		batchEnd = batchStart + interval.Seconds()

		payload := uploadPayload{
			DeviceID:      deviceID,
			EncryptedData: fakeCiphertext(),
			BatchStart:    batchStart,
			BatchEnd:      batchEnd,
			SampleCount:   10 + rand.Intn(20),
		}
		if err := post(client, baseURL+"/api/v1/telemetry/upload", payload); err != nil {
			logger.Printf("upload failed: %v", err)
		} else {
			logger.Printf("uploaded batch %d", i)
		}

		if i%6 == 0 {
			if err := post(client, baseURL+"/api/v1/analysis/request", analysisPayload{
				DeviceID:       deviceID,
				TimeRangeHours: 1,
			}); err != nil {
				logger.Printf("analysis request failed: %v", err)
			}
		}

		time.Sleep(interval)
	}
}

func post(client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// fakeCiphertext produces an opaque blob shaped like a Fernet token. The
// engine never decrypts payloads, so random bytes suffice.
func fakeCiphertext() string {
	buf := make([]byte, 64)
	rand.Read(buf)
	return "gAAAAAB" + base64.URLEncoding.EncodeToString(buf)
}
