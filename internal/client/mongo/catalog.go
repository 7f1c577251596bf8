package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shestoi/stockkeeper/internal/presentation"
)

const (
	productsCollection   = "products"
	categoriesCollection = "categories"
)

// productDocument - документ коллекции products
type productDocument struct {
	ID          interface{}            `bson:"_id"`
	SKU         string                 `bson:"sku"`
	Name        string                 `bson:"name"`
	Description string                 `bson:"description"`
	Brand       string                 `bson:"brand"`
	Attributes  map[string]interface{} `bson:"attributes"`
	Tags        []string               `bson:"tags"`
	CategoryID  string                 `bson:"categoryId"`
	Active      *bool                  `bson:"active"`
	CreatedAt   time.Time              `bson:"createdAt"`
	UpdatedAt   time.Time              `bson:"updatedAt"`
}

// categoryDocument - документ коллекции categories
type categoryDocument struct {
	ID          interface{} `bson:"_id"`
	Name        string      `bson:"name"`
	Description string      `bson:"description"`
	ParentID    string      `bson:"parentId"`
	Level       int         `bson:"level"`
	Path        string      `bson:"path"`
	Active      *bool       `bson:"active"`
}

// CatalogClient читает товары и категории из MongoDB каталога
// Каталог принадлежит другому сервису, клиент только читает
type CatalogClient struct {
	products   *mongo.Collection
	categories *mongo.Collection
}

// NewCatalogClient создаёт новый клиент каталога
func NewCatalogClient(client *mongo.Client, dbName string) *CatalogClient {
	db := client.Database(dbName)
	return &CatalogClient{
		products:   db.Collection(productsCollection),
		categories: db.Collection(categoriesCollection),
	}
}

// idFilter ищет документ по _id, сохранённому строкой или ObjectID
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(v)
	}
}

// отсутствие флага active означает активную запись
func isActive(v *bool) bool {
	return v == nil || *v
}

// GetProduct получает товар по ID
func (c *CatalogClient) GetProduct(ctx context.Context, productID string) (presentation.Product, error) {
	var doc productDocument
	err := c.products.FindOne(ctx, idFilter(productID)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return presentation.Product{}, presentation.ErrProductNotFound
		}
		return presentation.Product{}, fmt.Errorf("find product: %w", err)
	}

	return presentation.Product{
		ID:          idString(doc.ID),
		SKU:         doc.SKU,
		Name:        doc.Name,
		Description: doc.Description,
		Brand:       doc.Brand,
		CategoryID:  doc.CategoryID,
		Attributes:  doc.Attributes,
		Tags:        doc.Tags,
		Active:      isActive(doc.Active),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

// GetCategory получает категорию по ID
func (c *CatalogClient) GetCategory(ctx context.Context, categoryID string) (presentation.Category, error) {
	var doc categoryDocument
	err := c.categories.FindOne(ctx, idFilter(categoryID)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return presentation.Category{}, presentation.ErrCategoryNotFound
		}
		return presentation.Category{}, fmt.Errorf("find category: %w", err)
	}

	return presentation.Category{
		ID:          idString(doc.ID),
		Name:        doc.Name,
		Description: doc.Description,
		ParentID:    doc.ParentID,
		Level:       doc.Level,
		Path:        doc.Path,
		Active:      isActive(doc.Active),
	}, nil
}
