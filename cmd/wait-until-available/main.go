package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
)

// CLI holds the flags of the wait tool.
type CLI struct {
	URL      string        `help:"Endpoint that answers with OK once the server is up." default:"http://localhost:8080/contacts"`
	Interval time.Duration `help:"Time between two attempts." default:"5s"`
	Timeout  time.Duration `help:"Give up after this time, 0 waits forever." default:"0"`
}

// waitUntilAvailable polls url until it answers with the OK status code or ctx is done. Every
// failed attempt is reported to out.
func waitUntilAvailable(ctx context.Context, client *http.Client, url string, interval time.Duration, out io.Writer) error {
	var waited time.Duration
	for {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		res, err := client.Do(request)
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				fmt.Fprintln(out, res.Status)
				return nil
			}
			fmt.Fprintln(out, res.Status)
		} else {
			fmt.Fprintln(out, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s not available after %s: %w", url, waited, ctx.Err())
		case <-time.After(interval):
		}
		waited += interval
		fmt.Fprintf(out, "Waiting %s\n", waited)
	}
}

// Usage example on the command line, for scripts that start the server in the background:
// > go run ./cmd/wait-until-available --url=http://localhost:8080/contacts --timeout=1m
func main() {
	var cli CLI
	kong.Parse(&cli, kong.Description("Waits until the assistant's HTTP interface is up."))
	if err := cli.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

// Run waits for the configured URL.
func (c *CLI) Run() error {
	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return waitUntilAvailable(ctx, http.DefaultClient, c.URL, c.Interval, os.Stdout)
}
