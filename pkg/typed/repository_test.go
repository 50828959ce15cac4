package typed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/record"
	"github.com/aretw0/strata/pkg/typed"
)

type Book struct {
	Title string   `bson:"title"`
	Pages int      `bson:"pages,omitempty"`
	Tags  []string `bson:"tags,omitempty"`
}

type storeHandle struct{ store core.Store }

func (h storeHandle) Handle(context.Context) (core.Store, error) { return h.store, nil }

func setupRepo(t *testing.T) *typed.Repository[Book] {
	t.Helper()
	store, err := fs.NewStore(fs.Config{Root: t.TempDir(), Database: "typed"})
	require.NoError(t, err)

	engine := record.NewEngine(storeHandle{store}, record.NewRegistry(record.Schema{Name: "Book"}))
	kind, err := engine.Kind("Book")
	require.NoError(t, err)
	return typed.NewRepository[Book](kind)
}

func TestTypedRepository(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	// 1. Save assigns an identifier
	life := &typed.DocumentModel[Book]{Data: Book{Title: "My life", Pages: 120, Tags: []string{"memoir"}}}
	require.NoError(t, repo.Save(ctx, life))
	require.True(t, core.IsIdentifier(life.ID))
	assert.NotNil(t, life.Saver)

	// 2. Get by identifier string
	got, err := repo.Get(ctx, life.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, life.ID, got.ID)
	assert.Equal(t, Book{Title: "My life", Pages: 120, Tags: []string{"memoir"}}, got.Data)

	// 3. Explicit identifier
	second := &typed.DocumentModel[Book]{ID: "512ce86b98dee4a87a000001", Data: Book{Title: "My life, II"}}
	require.NoError(t, repo.Save(ctx, second))
	assert.Equal(t, "512ce86b98dee4a87a000001", second.ID)

	// 4. List in natural order
	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "My life", all[0].Data.Title)
	assert.Equal(t, "My life, II", all[1].Data.Title)

	// 5. Active record save
	got.Data.Pages = 121
	require.NoError(t, got.Save(ctx))
	reloaded, err := repo.MustGet(ctx, bson.D{{Key: "title", Value: "My life"}})
	require.NoError(t, err)
	assert.Equal(t, 121, reloaded.Data.Pages)

	// 6. Search
	found, err := repo.Search(ctx, "life", nil, record.Limit(1))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "My life", found[0].Data.Title)

	// 7. Update
	res, err := repo.Update(ctx, second.ID, bson.D{{Key: "$set", Value: bson.D{{Key: "pages", Value: int32(80)}}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)
	updated, err := repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, updated.Data.Pages)
}

func TestTypedRepository_Missing(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	got, err := repo.Get(ctx, "512ce86b98dee4a87a000000")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.MustGet(ctx, "512ce86b98dee4a87a000000")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = repo.List(ctx, "nope")
	assert.True(t, errors.Is(err, core.ErrInvalidQueryArgument))
}

func TestDocumentModel_Detached(t *testing.T) {
	doc := &typed.DocumentModel[Book]{Data: Book{Title: "x"}}
	assert.Error(t, doc.Save(context.Background()))
}
