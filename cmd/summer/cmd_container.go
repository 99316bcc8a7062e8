package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/km-arc/summer/framework/actuator"
	"github.com/km-arc/summer/framework/container"
)

// summer beans: build the container and print the creation order.
var beansCmd = &cobra.Command{
	Use:   "beans",
	Short: "Build the container and list beans in creation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Boot(cmd.Context()); err != nil {
			return err
		}

		beans := actuator.Describe(a.Container)
		slices.SortStableFunc(beans, func(x, y actuator.BeanInfo) int { return x.Order - y.Order })

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "#\tNAME\tTYPE\tDEPENDS ON")
		fmt.Fprintln(w, "-\t----\t----\t----------")
		for _, b := range beans {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", b.Order+1, b.Name, b.Type, dependsOn(b))
		}
		return w.Flush()
	},
}

func dependsOn(b actuator.BeanInfo) string {
	if len(b.Dependencies) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(b.Dependencies))
	for _, d := range b.Dependencies {
		s := d.Type
		if !d.Required {
			s += "?"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// summer graph: print the dependency graph without building anything.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the bean dependency graph in Graphviz dot format",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication()
		if err != nil {
			return err
		}
		defer a.Close()

		defs := a.Registry().Definitions()
		if _, err := container.TopologicalOrder(defs); err != nil {
			cmd.PrintErrln("warning:", err)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), container.DotGraph(defs))
		return err
	},
}
