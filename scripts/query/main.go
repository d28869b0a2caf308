package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/logger"
	"github.com/networmix/ee500-wifi/internal/query"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Queries stored runs, either through the HTTP API of `wifi-stats serve`
// or directly from ClickHouse.
func main() {
	mode := flag.String("mode", "api", "Query mode: 'api' to query via HTTP API, 'direct' to query ClickHouse directly.")
	runID := flag.String("run", "", "Run to fetch; lists the latest runs when empty.")
	limit := flag.Int("limit", 10, "Number of runs to list.")
	apiURL := flag.String("api", "http://localhost:8080", "Base URL of the API server.")
	configPath := flag.String("config", "configs/config.yaml", "Config file holding the ClickHouse writer (direct mode).")
	flag.Parse()

	log, err := logger.New(config.LogConfig{Level: "info"})
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Running query", zap.String("mode", *mode))

	switch *mode {
	case "api":
		path := fmt.Sprintf("/api/v1/runs?limit=%d", *limit)
		if *runID != "" {
			path = "/api/v1/runs/" + *runID
		}
		if err := queryViaAPI(*apiURL + path); err != nil {
			log.Fatal("API query failed", zap.Error(err))
		}
	case "direct":
		if err := queryClickHouse(*configPath, *runID, *limit); err != nil {
			log.Fatal("Direct query failed", zap.Error(err))
		}
	default:
		log.Fatal("Invalid mode, use 'api' or 'direct'", zap.String("mode", *mode))
	}
}

func queryViaAPI(url string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func queryClickHouse(configPath, runID string, limit int) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	ch, ok := cfg.ClickHouse()
	if !ok {
		return errors.Errorf("no enabled clickhouse writer in %s", configPath)
	}
	loader, err := query.NewClickHouseLoader(*ch)
	if err != nil {
		return err
	}
	defer loader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if runID == "" {
		runs, err := loader.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Printf("%-30s %s  %d values\n", r.RunID, r.Timestamp.Format(time.RFC3339), r.Values)
		}
		return nil
	}

	fe, err := loader.LoadRun(ctx, runID)
	if err != nil {
		return err
	}
	for _, k := range fe.MetadataKeys() {
		v, _ := fe.Metadata(k)
		fmt.Printf("%-40s %s\n", k, v)
	}
	fmt.Println("---------------------")
	for _, k := range fe.Keys() {
		fmt.Printf("%-40s %g\n", k, fe.Get(k))
	}
	return nil
}
