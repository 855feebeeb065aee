package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// confirmationPattern extracts the assigned id from the answer of a registration.
var confirmationPattern = regexp.MustCompile(`registered successfully with ID (\d+)`)

// Usage example on the command line:
// > go run main.go --server=http://localhost:8080 --sizes=100,1000,5000
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var server string
	var sizes []int

	cmd := &cobra.Command{
		Use:          "client",
		Short:        "Measure registration and listing latency of a running tourist registry",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), &http.Client{Timeout: time.Minute}, strings.TrimRight(server, "/"), sizes)
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "base URL of the tourist registry")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{1000, 5000, 10000}, "number of registrations per round")
	return cmd
}

// run registers the given numbers of tourists and lists them after each round. It prints the
// average latency of a registration and the latency of the listing in microseconds.
func run(out io.Writer, client *http.Client, server string, sizes []int) error {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Elements  REGISTER      LIST     LAST ID ")
	fmt.Fprintln(out, "-------------------------------------------")
	form := url.Values{
		"name":      {"Marcus Antonius"},
		"contact":   {"+39 999 777 555"},
		"itinerary": {"Rome, Alexandria, Actium"},
	}
	for _, loops := range sizes {
		if loops < 1 {
			return fmt.Errorf("invalid round size %d", loops)
		}
		var duration time.Duration
		var lastID int64
		for i := 0; i < loops; i++ {
			id, d, err := register(client, server, form)
			if err != nil {
				return err
			}
			duration += d
			lastID = id
		}
		listDuration, err := list(client, server)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%10d%10d%10d%12d\n",
			loops, duration.Microseconds()/int64(loops), listDuration.Microseconds(), lastID)
	}
	return nil
}

// register posts one registration and returns the assigned id and the latency.
func register(client *http.Client, server string, form url.Values) (int64, time.Duration, error) {
	before := time.Now()
	res, err := client.PostForm(server+"/register", form)
	if err != nil {
		return 0, 0, fmt.Errorf("error making http request: %w", err)
	}
	body, err := readBody(res)
	if err != nil {
		return 0, 0, err
	}
	id, err := parseID(body)
	return id, time.Since(before), err
}

// list fetches the listing page and returns the latency.
func list(client *http.Client, server string) (time.Duration, error) {
	before := time.Now()
	res, err := client.Get(server + "/tourists")
	if err != nil {
		return 0, fmt.Errorf("error making http request: %w", err)
	}
	if _, err := readBody(res); err != nil {
		return 0, err
	}
	return time.Since(before), nil
}

func readBody(res *http.Response) (string, error) {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("could not read response body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", res.Status)
	}
	return string(body), nil
}

// parseID extracts the id from a registration confirmation.
func parseID(confirmation string) (int64, error) {
	match := confirmationPattern.FindStringSubmatch(confirmation)
	if match == nil {
		return 0, fmt.Errorf("unexpected confirmation %q", confirmation)
	}
	return strconv.ParseInt(match[1], 10, 64)
}
