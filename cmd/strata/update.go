package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/record"
)

var (
	updateMulti  bool
	updateUpsert bool
)

var updateCmd = &cobra.Command{
	Use:   "update [model] [query] [update]",
	Short: "Update the models matching a query",
	Long: `Apply an update document ({"$set": {...}}) or a replacement to the
models matching a query. Only the first match is updated unless --multi.`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, kind := openClient(args[0])
		defer client.Close(ctx)

		query, err := parseQuery(args[1])
		if err != nil {
			fatal("Invalid query", err)
		}
		var update bson.D
		if err := bson.UnmarshalExtJSON([]byte(args[2]), false, &update); err != nil {
			fatal("Invalid update", err)
		}

		var opts []record.UpdateOption
		if updateMulti {
			opts = append(opts, record.Multi())
		}
		if updateUpsert {
			opts = append(opts, record.Upsert())
		}

		res, err := kind.Update(ctx, query, update, opts...)
		if err != nil {
			fatal("Failed to update", err)
		}
		fmt.Printf("matched %d, modified %d, upserted %d\n", res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	},
}

var saveCmd = &cobra.Command{
	Use:   "save [model] [document]",
	Short: "Insert or replace a model",
	Long:  `Save an extended JSON document. A document without "_id" or "id" gets a fresh identifier.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, kind := openClient(args[0])
		defer client.Close(ctx)

		var doc bson.D
		if err := bson.UnmarshalExtJSON([]byte(args[1]), false, &doc); err != nil {
			fatal("Invalid document", err)
		}
		m := kind.New(doc...)
		if err := kind.Save(ctx, m); err != nil {
			fatal("Failed to save", err)
		}
		printModel(m)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&updateMulti, "multi", false, "Update every match")
	updateCmd.Flags().BoolVar(&updateUpsert, "upsert", false, "Insert when nothing matches")

	rootCmd.AddCommand(saveCmd)
}
