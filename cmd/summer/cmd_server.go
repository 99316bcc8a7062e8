package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// summer serve: boot the application and serve HTTP until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApplication()
		if err != nil {
			return err
		}
		return a.Run(ctx)
	},
}

// summer routes: print every registered route.
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Boot(cmd.Context()); err != nil {
			return err
		}
		router, err := a.Router()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH")
		fmt.Fprintln(w, "------\t----")
		for _, r := range router.Routes() {
			fmt.Fprintf(w, "%s\t%s\n", r.Method, r.Pattern)
		}
		return w.Flush()
	},
}
