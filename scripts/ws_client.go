// Package main runs a demo WebSocket client: it attaches to the result
// stream, optimizes the sample problem under every scenario and prints the
// results as they are pushed.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type sample struct {
	Coordinates [][]float64 `json:"coordinates"`
	TimeWindows [][]float64 `json:"time_windows"`
	Scenarios   []string    `json:"scenarios"`
}

type optimizedRoute struct {
	Route      []int   `json:"route"`
	TotalTime  float64 `json:"total_time"`
	SolverType string  `json:"solver_type"`
	Fallback   bool    `json:"fallback"`
}

type result struct {
	ID        string         `json:"id"`
	Scenario  string         `json:"scenario"`
	Optimized optimizedRoute `json:"optimized"`
	Baseline  struct {
		TotalTime float64 `json:"total_time"`
	} `json:"baseline"`
	Improvement struct {
		ImprovementPercent float64 `json:"improvement_percent"`
	} `json:"improvement"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	resp, err := http.Get(base + "/api/sample")
	if err != nil {
		log.Fatal(err)
	}
	var smp sample
	err = json.NewDecoder(resp.Body).Decode(&smp)
	_ = resp.Body.Close()
	if err != nil {
		log.Fatal(err)
	}

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/api/stream"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	var ack event
	if err := c.ReadJSON(&ack); err != nil || ack.Type != "connection_ack" {
		log.Fatalf("no ack: %+v %v", ack, err)
	}

	received := make(chan result)
	go func() {
		defer close(received)
		for {
			var e event
			if err := c.ReadJSON(&e); err != nil {
				log.Printf("read: %v", err)
				return
			}
			var r result
			if e.Type == "result" && json.Unmarshal(e.Payload, &r) == nil {
				received <- r
			}
		}
	}()

	for _, sc := range smp.Scenarios {
		body, _ := json.Marshal(map[string]any{"coordinates": smp.Coordinates, "scenario": sc})
		resp, err := http.Post(base+"/api/optimize", "application/json", bytes.NewReader(body))
		if err != nil {
			log.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			log.Printf("optimize %s: HTTP %d", sc, resp.StatusCode)
			continue
		}
		select {
		case r, ok := <-received:
			if !ok {
				return
			}
			log.Printf("%-8s baseline=%.2f optimized=%.2f (%+.1f%%) solver=%s fallback=%v route=%v",
				r.Scenario, r.Baseline.TotalTime, r.Optimized.TotalTime, r.Improvement.ImprovementPercent,
				r.Optimized.SolverType, r.Optimized.Fallback, r.Optimized.Route)
		case <-time.After(30 * time.Second):
			log.Printf("%s: no result on the stream", sc)
		}
	}
}
