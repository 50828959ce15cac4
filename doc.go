// Package strata is the Composition Root of Strata, an active-record mapping
// layer over a schema-less document store.
//
// It connects the query engine (pkg/record) with the storage adapters: MongoDB
// through the official driver, and a filesystem store keeping one JSON or
// YAML file per document for local development and tests.
//
// Features:
//
//   - **Named connections**: resolved from configuration files and STRATA_*
//     environment variables, switchable at runtime or bypassed with an
//     explicit address.
//   - **Convention over configuration**: a model "Book" lives in collection
//     "books", "Person" in "people", unless overridden.
//   - **Lenient queries**: a 24-hex string is an id lookup, a map is a condition,
//     nothing matches everything.
//   - **Lazy cursors**: limit, skip and sort before reading; count ignores limit.
//   - **Public JSON**: documents expose "id" instead of "_id", at every depth.
//   - **Typed Retrieval**: Generic wrapper (`NewTypedRepository[T]`) for struct access.
//
// Usage:
//
//	client, err := strata.Open(
//		strata.WithConfigFile("strata.yaml"),
//		strata.WithSchemas(strata.Schema{Name: "Book"}),
//	)
//
//	books, _ := client.Kind("Book")
//	book, err := books.FindOneOrFail(ctx, "512ce86b98dee4a87a000000")
package strata
