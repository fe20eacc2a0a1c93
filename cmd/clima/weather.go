package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/clima-service/internal/presentation"
	"github.com/kjstillabower/clima-service/internal/validation"
)

func weatherCommand(opts *options) *cobra.Command {
	var pick int
	cmd := &cobra.Command{
		Use:   "weather [query...]",
		Short: "Show current weather and the 5-day forecast",
		Long: "Resolves the query, selects candidate --pick and prints its weather. " +
			"Without a query the default city is shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			defer c.Close()

			app := c.App
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				q, err := validation.ValidateQuery(joinArgs(args), validation.MaxQueryLength)
				if err != nil {
					return fmt.Errorf("query: %w", err)
				}
				view := app.Search(cmd.Context(), q)
				if len(view.Suggestions) == 0 {
					msg := view.Message
					if msg == "" {
						msg = presentation.MsgNoResults
					}
					fmt.Fprintln(out, msg)
					return nil
				}
				if pick < 0 || pick >= len(view.Suggestions) {
					return fmt.Errorf("--pick %d: only %d candidates", pick, len(view.Suggestions))
				}
				app.Select(view.Suggestions[pick].Location)
			}

			v, err := app.Load(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, presentation.MsgWeatherFailed)
				return err
			}
			printView(out, v)
			return nil
		},
	}
	cmd.Flags().IntVar(&pick, "pick", 0, "Index of the candidate to show")
	return cmd
}

func printView(out io.Writer, v presentation.View) {
	fmt.Fprintln(out, v.Title)
	fmt.Fprintf(out, "%s  %s\n", v.Temperature, v.Description)
	fmt.Fprintf(out, "%s  %s\n", v.Wind, v.Period)
	for _, d := range v.Days {
		fmt.Fprintf(out, "%s  %d° / %d°\n", d.Date, d.Min, d.Max)
	}
}
