package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata"
)

var (
	verbose    bool
	configFile string
	connection string
	server     string
	database   string
	collection string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "An active-record mapping layer over document stores",
	Long: `Strata queries MongoDB databases, or directories of JSON/YAML documents,
through named models: "Book" lives in "books", ids are 24 hex digits and
results come back as JSON with "id" instead of "_id".`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&configFile, "config", "c", "", "Config file (default: strata.yaml found upwards)")
	flags.StringVar(&connection, "connection", "", "Named connection (default \"default\")")
	flags.StringVar(&server, "server", "", "Explicit server, e.g. mongodb://localhost:27017 or file://./data")
	flags.StringVar(&database, "database", "", "Database used with --server")
	flags.StringVar(&collection, "collection", "", "Override the collection of the model")
}

// openClient opens a client with model registered.
func openClient(model string) (*strata.Client, *strata.Kind) {
	opts := []strata.Option{
		strata.WithLogger(slog.Default()),
		strata.WithConfigFile(configFile),
		strata.WithConnection(connection),
	}
	if server != "" {
		opts = append(opts, strata.WithExplicitAddress(server, database))
	}
	if model != "" {
		opts = append(opts, strata.WithSchemas(strata.Schema{Name: model, Collection: collection}))
	}

	client, err := strata.Open(opts...)
	if err != nil {
		fatal("Failed to open client", err)
	}
	if model == "" {
		return client, nil
	}
	kind, err := client.Kind(model)
	if err != nil {
		fatal("Failed to resolve model", err)
	}
	return client, kind
}

// parseQuery turns a command line argument into a query: extended JSON
// documents are decoded, anything else is passed on as an id.
func parseQuery(arg string) (any, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, nil
	}
	if !strings.HasPrefix(arg, "{") {
		return arg, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(arg), false, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	return doc, nil
}

func printModel(m *strata.Model) {
	data, err := m.MarshalJSON()
	if err != nil {
		fatal("Failed to encode model", err)
	}
	fmt.Println(string(data))
}
