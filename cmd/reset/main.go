// Command reset empties the leads table of a running API by calling
// POST /api/reset.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appconfig "github.com/wolfman30/leadcapture/internal/config"
)

const defaultAPIURL = "http://localhost:3000"

// resetResponse mirrors the API envelope for POST /api/reset.
type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	apiURL := strings.TrimSpace(os.Getenv("API_URL"))
	if len(os.Args) >= 2 {
		apiURL = os.Args[1]
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	client := &http.Client{Timeout: 30 * time.Second}
	if err := run(context.Background(), client, apiURL, os.Stdout); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *http.Client, apiURL string, out io.Writer) error {
	url := strings.TrimRight(apiURL, "/") + "/api/reset"
	fmt.Fprintf(out, "Clearing leads table...\nURL: %s\n", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var result resetResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("HTTP %d: unexpected response %q", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, result.Error)
	}

	fmt.Fprintf(out, "Success! %s\n", result.Message)
	return nil
}
