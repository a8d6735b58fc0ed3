package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matheus3301/msana/internal/tab"
	"github.com/matheus3301/msana/internal/tui/client"
	"github.com/spf13/cobra"
)

const callTimeout = 30 * time.Second

type options struct {
	tab     string
	jsonOut bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "msanactl",
		Short:         "Control a running billing console tab",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.tab, "tab", "", "tab name (overrides config default)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "output in JSON format")

	root.AddCommand(
		statusCmd(opts),
		loginCmd(opts),
		logoutCmd(opts),
		switchCmd(opts),
		accountsCmd(opts),
		invoiceCmd(opts),
		syncCmd(opts),
		netCmd(opts),
		draftCmd(opts),
		productsCmd(opts),
		tabsCmd(opts),
	)
	return root
}

// run dials the selected tab and calls fn with a bounded context.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client, out io.Writer) error) error {
	tabName := tab.Resolve(o.tab)
	if err := tab.ValidateName(tabName); err != nil {
		return err
	}
	c, err := client.New(tab.SocketPath(tabName))
	if err != nil {
		return fmt.Errorf("cannot connect to tab %q: %w", tabName, err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	return fn(ctx, c, cmd.OutOrStdout())
}

// emit prints v as JSON when --json is set, otherwise calls text.
func (o *options) emit(out io.Writer, v any, text func(io.Writer)) error {
	if o.jsonOut {
		return outputJSON(out, v)
	}
	text(out)
	return nil
}

func outputJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
