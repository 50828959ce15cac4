package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection [model]",
	Short: "Print the collection a model is stored in",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, kind := openClient(args[0])
		defer client.Close(context.Background())

		name, err := kind.Collection()
		if err != nil {
			fatal("Failed to resolve collection", err)
		}
		fmt.Println(name)
	},
}

var connectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Show the resolved connection",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client, _ := openClient("")
		defer client.Close(ctx)

		if _, err := client.Store(ctx); err != nil {
			fatal("Failed to connect", err)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(client.Resolver.State()); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	rootCmd.AddCommand(connectionCmd)
}
