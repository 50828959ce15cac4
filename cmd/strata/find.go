package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	findLimit int64
	findSkip  int64
	findSort  string
	findCount bool
)

var findCmd = &cobra.Command{
	Use:   "find [model] [query]",
	Short: "List the models matching a query",
	Long: `List the models matching a query as a JSON array.
The query is an id, an extended JSON document, or nothing to match everything.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, kind := openClient(args[0])
		defer client.Close(ctx)

		var query any
		if len(args) == 2 {
			q, err := parseQuery(args[1])
			if err != nil {
				fatal("Invalid query", err)
			}
			query = q
		}

		cursor, err := kind.Find(query)
		if err != nil {
			fatal("Invalid query", err)
		}
		if findLimit > 0 {
			cursor = cursor.Limit(findLimit)
		}
		if findSkip > 0 {
			cursor = cursor.Skip(findSkip)
		}
		if findSort != "" {
			var keys bson.D
			if err := bson.UnmarshalExtJSON([]byte(findSort), false, &keys); err != nil {
				fatal("Invalid sort", err)
			}
			cursor = cursor.Sort(keys)
		}

		if findCount {
			n, err := cursor.Count(ctx)
			if err != nil {
				fatal("Failed to count", err)
			}
			fmt.Println(n)
			return
		}

		out, err := cursor.ToJSON(ctx)
		if err != nil {
			fatal("Failed to query", err)
		}
		fmt.Println(out)
	},
}

var findOneFail bool

var findOneCmd = &cobra.Command{
	Use:   "find-one [model] [query]",
	Short: "Print the first model matching a query",
	Long:  `Print the first model matching a query, or null. With --fail a missing model is an error.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, kind := openClient(args[0])
		defer client.Close(ctx)

		var query any
		if len(args) == 2 {
			q, err := parseQuery(args[1])
			if err != nil {
				fatal("Invalid query", err)
			}
			query = q
		}

		find := kind.FindOne
		if findOneFail {
			find = kind.FindOneOrFail
		}
		m, err := find(ctx, query)
		if err != nil {
			fatal("Failed to find", err)
		}
		if m == nil {
			fmt.Println("null")
			return
		}
		printModel(m)
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().Int64Var(&findLimit, "limit", 0, "Maximum number of models")
	findCmd.Flags().Int64Var(&findSkip, "skip", 0, "Number of models to skip")
	findCmd.Flags().StringVar(&findSort, "sort", "", `Sort document, e.g. {"year": -1}`)
	findCmd.Flags().BoolVar(&findCount, "count", false, "Print the number of matches (ignores --limit)")

	rootCmd.AddCommand(findOneCmd)
	findOneCmd.Flags().BoolVar(&findOneFail, "fail", false, "Fail when nothing matches")
}
