package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata/pkg/record"
)

var searchLimit int64

var searchCmd = &cobra.Command{
	Use:   "search [model] [text] [filter]",
	Short: "Full-text search, most relevant first",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, kind := openClient(args[0])
		defer client.Close(ctx)

		var filter any
		if len(args) == 3 {
			f, err := parseQuery(args[2])
			if err != nil {
				fatal("Invalid filter", err)
			}
			filter = f
		}

		var opts []record.SearchOption
		if searchLimit > 0 {
			opts = append(opts, record.Limit(searchLimit))
		}
		models, err := kind.TextSearch(ctx, args[1], filter, opts...)
		if err != nil {
			fatal("Failed to search", err)
		}

		parts := make([]string, 0, len(models))
		for _, m := range models {
			data, err := m.MarshalJSON()
			if err != nil {
				fatal("Failed to encode model", err)
			}
			parts = append(parts, string(data))
		}
		fmt.Printf("[%s]\n", strings.Join(parts, ","))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int64Var(&searchLimit, "limit", 0, "Maximum number of results")
}
