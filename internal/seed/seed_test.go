package seed_test

import (
	"context"
	"testing"

	"storefront/internal/repositories"
	"storefront/internal/seed"
	"storefront/internal/services"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const categoriesCSV = `name,imageUrl,createdAt
Shoes,/objects/shoes.png,2024-03-01
Hats,,03/02/2024
`

const productsCSV = `name,description,price,originalPrice,discountPercent,stockQuantity,isAvailable,category,brand,imageUrls,createdAt
Runner,Light shoe,80,100,20,5,true,Shoes,Acme,/objects/a.png|/objects/b.png,2024-03-01T10:00:00Z
Cap,,15,,,,,Hats,,,
`

func newImporter(t *testing.T, files map[string]string) (*seed.Importer, *repositories.MemoryStore) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, "seed/"+name, []byte(body), 0o644))
	}
	store := repositories.NewMemoryStore(nil)
	return seed.NewImporter(fs, services.NewCatalogService(store, nil, 0)), store
}

func TestImporter_Run(t *testing.T) {
	im, store := newImporter(t, map[string]string{
		seed.CategoriesFile: categoriesCSV,
		seed.ProductsFile:   productsCSV,
	})
	ctx := context.Background()

	res, err := im.Run(ctx, "seed")
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Categories: 2, Products: 2}, res)

	records, err := store.Query(ctx, repositories.CollectionProducts, repositories.Where("name", "Runner"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.EqualValues(t, 20, records[0].Data["discountPercent"])
	assert.Len(t, records[0].Data["imageUrls"], 2)

	records, err = store.Query(ctx, repositories.CollectionProducts, repositories.Where("name", "Cap"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Data["discountPercent"])
	assert.Equal(t, true, records[0].Data["isAvailable"])

	// A second run leaves a populated catalog alone.
	res, err = im.Run(ctx, "seed")
	require.NoError(t, err)
	assert.Equal(t, seed.Result{}, res)
}

func TestImporter_MissingFilesAreSkipped(t *testing.T) {
	im, _ := newImporter(t, nil)
	res, err := im.Run(context.Background(), "seed")
	require.NoError(t, err)
	assert.Equal(t, seed.Result{}, res)
}

func TestImporter_LeadingZerosAreDecimal(t *testing.T) {
	im, store := newImporter(t, map[string]string{
		seed.ProductsFile: "name,price,discountPercent,stockQuantity,category\nPadded,5,08,010,Shoes\n",
	})
	ctx := context.Background()
	res, err := im.Run(ctx, "seed")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Products)

	records, err := store.Query(ctx, repositories.CollectionProducts, repositories.Where("name", "Padded"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.EqualValues(t, 8, records[0].Data["discountPercent"])
	assert.EqualValues(t, 10, records[0].Data["stockQuantity"])
}

func TestImporter_BadRow(t *testing.T) {
	im, _ := newImporter(t, map[string]string{
		seed.ProductsFile: "name,price,category\nBroken,abc,Shoes\n",
	})
	_, err := im.Run(context.Background(), "seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products.csv line 2: bad price")
}
