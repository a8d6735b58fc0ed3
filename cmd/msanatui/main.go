package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/msana/internal/tab"
	"github.com/matheus3301/msana/internal/tui"
	"github.com/matheus3301/msana/internal/tui/client"
	"github.com/spf13/cobra"
)

func main() {
	var tabFlag, navFlag string

	root := &cobra.Command{
		Use:           "msanatui",
		Short:         "Terminal UI for a billing console tab",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			tabName := tab.Resolve(tabFlag)
			if err := tab.ValidateName(tabName); err != nil {
				return err
			}
			socketPath := tab.SocketPath(tabName)

			// Probe the tab; start it if needed.
			if !probeTab(socketPath) {
				fmt.Fprintf(os.Stderr, "tab %q not running, starting...\n", tabName)
				if err := startTab(tabName, navFlag); err != nil {
					return fmt.Errorf("failed to start tab: %w", err)
				}
				if !waitForTab(socketPath, 10*time.Second) {
					return fmt.Errorf("tab %q did not become ready", tabName)
				}
			}

			c, err := client.New(socketPath)
			if err != nil {
				return fmt.Errorf("connect to tab: %w", err)
			}
			defer func() { _ = c.Close() }()

			return tui.NewApp(c).Run()
		},
	}
	root.Flags().StringVar(&tabFlag, "tab", "", "tab name (overrides config default)")
	root.Flags().StringVar(&navFlag, "navigation", "navigate", "navigation type passed to a tab started by msanatui")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// probeTab checks that a tab is running and answers on the socket.
func probeTab(socketPath string) bool {
	c, err := client.New(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Status(ctx)
	return err == nil
}

func startTab(tabName, navigation string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	msanad := filepath.Join(filepath.Dir(executable), "msanad")
	if _, err := os.Stat(msanad); err != nil {
		msanad = "msanad"
	}

	cmd := exec.Command(msanad, "--tab", tabName, "--navigation", navigation)
	// Inherit stderr so startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForTab polls the tab with a real control call, not just a socket connect.
func waitForTab(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeTab(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
