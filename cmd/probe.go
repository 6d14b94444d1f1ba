package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/querybee/querybee/internal/client"
	"github.com/querybee/querybee/internal/progress"
)

// probeStep is one smoke-test query.
type probeStep struct {
	Query   string
	Session string
}

// defaultProbes checks a fresh session, a follow-up on the same session, and
// a second independent session.
var defaultProbes = []probeStep{
	{Query: "admission", Session: "test-1"},
	{Query: "followup", Session: "test-1"},
	{Query: "admission begin", Session: "test-2"},
}

var probeCmd = &cobra.Command{
	Use:   "probe [query...]",
	Short: "Smoke-test a running relay",
	Long: `Checks /api/health and sends a few queries to a running relay, then prints
each reply. Queries given as arguments replace the defaults and share one session.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().String("url", client.DefaultURL, "base URL of the relay")
	probeCmd.Flags().String("session", "probe-1", "session id for queries given as arguments")
	rootCmd.AddCommand(probeCmd)
}

type probeResult struct {
	step  probeStep
	reply string
	err   error
}

func runProbe(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	session, _ := cmd.Flags().GetString("session")

	steps := defaultProbes
	if len(args) > 0 {
		steps = make([]probeStep, len(args))
		for i, q := range args {
			steps[i] = probeStep{Query: q, Session: session}
		}
	}

	ctx := context.Background()
	c := client.New(url, nil)

	health, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("relay at %s is not healthy: %w", url, err)
	}
	fmt.Fprintf(os.Stderr, "Relay %s is %s (%s)\n", url, health.Status, health.Timestamp)

	reporter := progress.NewReporter("Probing")
	reporter.Start(len(steps))

	results := make([]probeResult, 0, len(steps))
	failed := 0
	for i, step := range steps {
		reporter.Update(i, step.Query)
		res := probeResult{step: step}
		resp, err := c.Ask(ctx, step.Query, step.Session)
		if err != nil {
			res.err = err
			failed++
		} else {
			res.reply = resp.Response
		}
		results = append(results, res)
		reporter.Update(i+1, step.Query)
	}
	reporter.Finish()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tQUERY\tREPLY")
	for _, res := range results {
		reply := res.reply
		if res.err != nil {
			reply = "ERROR: " + res.err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", res.step.Session, res.step.Query, reply)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d probes failed", failed, len(steps))
	}
	return nil
}
