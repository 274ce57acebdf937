package repositories_test

import (
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_ProductThroughDocument(t *testing.T) {
	discount := 20
	original := 50.0
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	product := models.Product{
		ID:              "ignored",
		Name:            "Runner",
		Price:           40,
		OriginalPrice:   &original,
		DiscountPercent: &discount,
		StockQuantity:   3,
		IsAvailable:     true,
		Category:        "Shoes",
		ImageURLs:       []string{"a.png", "b.png"},
		CreatedAt:       created,
	}

	doc, err := repositories.EncodeDocument(product)
	require.NoError(t, err)
	_, hasID := doc["id"]
	assert.False(t, hasID)
	assert.Equal(t, "Shoes", doc["category"])

	var decoded models.Product
	require.NoError(t, repositories.DecodeRecord(repositories.Record{ID: "p-1", Data: doc}, &decoded))
	assert.Equal(t, "p-1", decoded.ID)
	assert.Equal(t, 3, decoded.StockQuantity)
	require.NotNil(t, decoded.DiscountPercent)
	assert.Equal(t, 20, *decoded.DiscountPercent)
	assert.Equal(t, []string{"a.png", "b.png"}, decoded.ImageURLs)
	assert.True(t, created.Equal(decoded.CreatedAt))
}

func TestCodec_DecodeRecordsEmpty(t *testing.T) {
	lines, err := repositories.DecodeRecords[models.CartLine](nil)
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestCodec_DecodeRejectsBadTime(t *testing.T) {
	var line models.CartLine
	err := repositories.DecodeRecord(repositories.Record{ID: "c1", Data: repositories.Document{"addedAt": "yesterday"}}, &line)
	assert.Error(t, err)
}
