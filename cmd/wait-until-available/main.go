package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/config"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/logger"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/service"
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:8080/ -interval=5s -timeout=2m
func main() {
	url := flag.String("url", "http://localhost:8080/", "the status endpoint of the tourist registry")
	interval := flag.Duration("interval", 5*time.Second, "the pause between two attempts")
	timeout := flag.Duration("timeout", 0, "give up after this duration, 0 waits forever")
	flag.Parse()

	log := newLogger()
	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	if err := waitUntilAvailable(ctx, http.DefaultClient, *url, *interval, log); err != nil {
		log.Error().Err(err).Msg("service did not become available")
		os.Exit(1)
	}
}

// waitUntilAvailable polls url until it answers 200 with the status text of the service.
// newLogger creates the same logger the other binaries start with.
func newLogger() zerolog.Logger {
	return logger.New(config.Default().Log)
}

func waitUntilAvailable(ctx context.Context, client *http.Client, url string, interval time.Duration, log zerolog.Logger) error {
	var totalWaitTime time.Duration
	for {
		err := check(ctx, client, url)
		if err == nil {
			log.Info().Str("url", url).Msg("service is available")
			return nil
		}
		log.Info().Err(err).Dur("waited", totalWaitTime).Msg("service not available yet")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
			totalWaitTime += interval
		}
	}
}

func check(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status)
	}
	if !strings.Contains(string(body), service.StatusMessage) {
		return fmt.Errorf("unexpected answer %q", string(body))
	}
	return nil
}
