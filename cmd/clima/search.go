package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/clima-service/internal/validation"
)

func searchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "List the cities matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := validation.ValidateQuery(joinArgs(args), validation.MaxQueryLength)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			c, err := opts.build()
			if err != nil {
				return err
			}
			defer c.Close()

			view := c.App.Search(cmd.Context(), q)
			out := cmd.OutOrStdout()
			if view.Message != "" {
				fmt.Fprintln(out, view.Message)
				return nil
			}
			for i, s := range view.Suggestions {
				fmt.Fprintf(out, "%d. %s\n", i, s.Label)
			}
			return nil
		},
	}
}
