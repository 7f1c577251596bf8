//go:build integration

package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/stockkeeper/internal/presentation"
)

func TestCatalogClient_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoC, err := mongodb.RunContainer(ctx, tc.WithImage("mongo:6"))
	require.NoError(t, err)
	defer func() { require.NoError(t, mongoC.Terminate(ctx)) }()

	uri, err := mongoC.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()

	db := client.Database("catalog")
	productID := primitive.NewObjectID()
	_, err = db.Collection(productsCollection).InsertOne(ctx, bson.M{
		"_id":        productID,
		"sku":        "SKI-001",
		"name":       "Carving Ski",
		"categoryId": "cat-ski",
		"tags":       bson.A{"ski", "carving"},
	})
	require.NoError(t, err)
	_, err = db.Collection(categoriesCollection).InsertOne(ctx, bson.M{
		"_id":    "cat-ski",
		"name":   "Ski",
		"path":   "Winter/Ski",
		"active": false,
	})
	require.NoError(t, err)

	catalog := NewCatalogClient(client, "catalog")

	product, err := catalog.GetProduct(ctx, productID.Hex())
	require.NoError(t, err)
	require.Equal(t, productID.Hex(), product.ID)
	require.Equal(t, "SKI-001", product.SKU)
	require.True(t, product.Active)
	require.Equal(t, []string{"ski", "carving"}, product.Tags)

	category, err := catalog.GetCategory(ctx, "cat-ski")
	require.NoError(t, err)
	require.Equal(t, "Winter/Ski", category.Path)
	require.False(t, category.Active)

	_, err = catalog.GetProduct(ctx, "missing")
	require.ErrorIs(t, err, presentation.ErrProductNotFound)

	_, err = catalog.GetCategory(ctx, "missing")
	require.ErrorIs(t, err, presentation.ErrCategoryNotFound)
}
