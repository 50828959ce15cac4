package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/strata/pkg/adapters/lifecycle"
	"github.com/aretw0/strata/pkg/core"
)

var (
	watchCollections []string
	watchTypes       []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [pattern]",
	Short: "Stream document changes of a filesystem store",
	Long: `Print one line per change ("CREATE books/<id>") until interrupted.
The pattern matches "collection/id" paths, e.g. "books/*" (default "**").`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client, _ := openClient("")
		defer client.Close(context.Background())

		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}
		events, err := client.Watch(ctx, pattern)
		if err != nil {
			fatal("Failed to watch", err)
		}

		var opts []lifecycle.SourceOption
		if len(watchCollections) > 0 {
			opts = append(opts, lifecycle.WithCollections(watchCollections...))
		}
		if len(watchTypes) > 0 {
			types := make([]core.EventType, 0, len(watchTypes))
			for _, t := range watchTypes {
				types = append(types, core.EventType(strings.ToUpper(t)))
			}
			opts = append(opts, lifecycle.WithTypes(types...))
		}

		source := lifecycle.NewSource(events, opts...)
		if err := source.Start(ctx); err != nil {
			fatal("Failed to start watcher", err)
		}
		for e := range source.Events() {
			fmt.Println(e)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVar(&watchCollections, "only", nil, "Only these collections")
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "Only these change types (create, modify, delete)")
}
