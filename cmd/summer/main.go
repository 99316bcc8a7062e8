package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/km-arc/summer/app"
	kernel "github.com/km-arc/summer/framework/app"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "summer",
	Short:         "IoC container runtime",
	Long:          "summer wires beans from service providers into a container and serves them over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	rootCmd.AddCommand(beansCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(serveCmd)
}

// newApplication creates the application with every provider registered.
func newApplication() (*kernel.Application, error) {
	a, err := kernel.New(kernel.Options{EnvFiles: envFiles})
	if err != nil {
		return nil, err
	}
	if err := a.Register(&app.GreetingProvider{}); err != nil {
		return nil, err
	}
	return a, nil
}
