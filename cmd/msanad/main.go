package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/msana/internal/daemon"
	"github.com/matheus3301/msana/internal/lease"
	"github.com/matheus3301/msana/internal/tab"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	var tabFlag, navFlag string

	root := &cobra.Command{
		Use:           "msanad",
		Short:         "Run one billing console tab",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tabName := tab.Resolve(tabFlag)
			if err := tab.ValidateName(tabName); err != nil {
				return err
			}
			nav, err := lease.ParseNavigation(navFlag)
			if err != nil {
				return err
			}

			app := fx.New(
				daemon.Module(daemon.Params{TabName: tabName, Navigation: nav}),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	root.Flags().StringVar(&tabFlag, "tab", "", "tab name (overrides config default)")
	root.Flags().StringVar(&navFlag, "navigation", string(lease.Reload),
		"how the tab was opened: navigate, reload or back_forward")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
