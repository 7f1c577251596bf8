package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/stockkeeper/internal/repository"
)

const collectionName = "stock_records"

// StockDocument представляет документ в коллекции MongoDB
type StockDocument struct {
	ID               string    `bson:"_id"`
	ProductID        string    `bson:"product_id"`
	LocationCode     string    `bson:"location_code"`
	Quantity         int32     `bson:"quantity"`
	ReservedQuantity int32     `bson:"reserved_quantity"`
	Status           string    `bson:"status"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func (d StockDocument) toRecord() repository.StockRecord {
	return repository.StockRecord{
		ID:               d.ID,
		ProductID:        d.ProductID,
		LocationCode:     d.LocationCode,
		Quantity:         d.Quantity,
		ReservedQuantity: d.ReservedQuantity,
		Status:           repository.Status(d.Status),
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// Repository реализует StockRepository используя MongoDB
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
}

// NewRepository создаёт новый MongoDB репозиторий
// Создаёт уникальный индекс на (product_id, location_code) и индекс на status при инициализации
func NewRepository(client *mongo.Client, dbName string) *Repository {
	db := client.Database(dbName)
	col := db.Collection(collectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "product_id", Value: 1}, {Key: "location_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Если индексы уже существуют - игнорируем ошибку
	_, _ = col.Indexes().CreateMany(ctx, indexes)

	return &Repository{
		client: client,
		db:     db,
		col:    col,
	}
}

func keyFilter(key repository.Key) bson.M {
	return bson.M{"product_id": key.ProductID, "location_code": key.LocationCode}
}

// Create вставляет новый документ
// Нарушение уникального индекса превращается в ErrAlreadyExists
func (r *Repository) Create(ctx context.Context, record repository.StockRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	doc := StockDocument{
		ID:               record.ID,
		ProductID:        record.ProductID,
		LocationCode:     record.LocationCode,
		Quantity:         record.Quantity,
		ReservedQuantity: record.ReservedQuantity,
		Status:           string(record.Status),
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert stock record: %w", err)
	}
	return nil
}

// Get получает запись по ключу
func (r *Repository) Get(ctx context.Context, key repository.Key) (repository.StockRecord, error) {
	var doc StockDocument
	err := r.col.FindOne(ctx, keyFilter(key)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.StockRecord{}, repository.ErrNotFound
		}
		return repository.StockRecord{}, fmt.Errorf("find stock record: %w", err)
	}
	return doc.toRecord(), nil
}

// GetMany получает записи по списку товаров одним запросом
func (r *Repository) GetMany(ctx context.Context, productIDs []string, locationCode string) (map[string]repository.StockRecord, error) {
	out := make(map[string]repository.StockRecord, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	filter := bson.M{
		"product_id":    bson.M{"$in": productIDs},
		"location_code": locationCode,
	}
	docs, err := r.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		out[doc.ProductID] = doc.toRecord()
	}
	return out, nil
}

// ListByMaxQuantity возвращает записи с quantity <= threshold
func (r *Repository) ListByMaxQuantity(ctx context.Context, locationCode string, threshold int32) ([]repository.StockRecord, error) {
	filter := bson.M{
		"location_code": locationCode,
		"quantity":      bson.M{"$lte": threshold},
	}
	return r.list(ctx, filter)
}

// ListByMaxAvailable возвращает записи с quantity - reserved_quantity <= threshold
func (r *Repository) ListByMaxAvailable(ctx context.Context, locationCode string, threshold int32) ([]repository.StockRecord, error) {
	filter := bson.M{
		"location_code": locationCode,
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$subtract": bson.A{"$quantity", "$reserved_quantity"}},
			threshold,
		}},
	}
	return r.list(ctx, filter)
}

func (r *Repository) list(ctx context.Context, filter bson.M) ([]repository.StockRecord, error) {
	docs, err := r.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]repository.StockRecord, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toRecord())
	}
	return out, nil
}

func (r *Repository) find(ctx context.Context, filter bson.M) ([]StockDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "product_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find stock records: %w", err)
	}
	var docs []StockDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode stock records: %w", err)
	}
	return docs, nil
}

// guardExpr строит $expr-условие мутации
func guardExpr(m repository.Mutation) bson.M {
	switch m.Guard {
	case repository.GuardAvailable:
		return bson.M{"$gte": bson.A{
			bson.M{"$subtract": bson.A{"$quantity", "$reserved_quantity"}},
			m.GuardAmount,
		}}
	case repository.GuardReserved:
		return bson.M{"$gte": bson.A{"$reserved_quantity", m.GuardAmount}}
	case repository.GuardCapacity:
		return bson.M{"$lte": bson.A{"$quantity", repository.CapacityLimit(m.GuardAmount)}}
	default:
		return nil
	}
}

// Apply атомарно проверяет условие и применяет мутацию
// Использует FindOneAndUpdate: условие проверяется в фильтре, изменение делается через $inc
// mongo.ErrNoDocuments означает: либо записи нет, либо условие не выполнено
func (r *Repository) Apply(ctx context.Context, key repository.Key, m repository.Mutation) (repository.StockRecord, error) {
	filter := keyFilter(key)
	if expr := guardExpr(m); expr != nil {
		filter["$expr"] = expr
	}

	update := bson.M{
		"$inc": bson.M{"quantity": m.QuantityDelta, "reserved_quantity": m.ReservedDelta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After)

	var updated StockDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.StockRecord{}, repository.ErrConditionFailed
		}
		return repository.StockRecord{}, fmt.Errorf("apply stock mutation: %w", err)
	}
	return updated.toRecord(), nil
}

// UpdateDerivedStatus записывает статус, если текущий статус не DISCONTINUED
func (r *Repository) UpdateDerivedStatus(ctx context.Context, key repository.Key, status repository.Status) (bool, error) {
	filter := keyFilter(key)
	filter["status"] = bson.M{"$ne": string(repository.StatusDiscontinued)}

	update := bson.M{"$set": bson.M{"status": string(status), "updated_at": time.Now().UTC()}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update derived status: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// SetStatus безусловно записывает статус
func (r *Repository) SetStatus(ctx context.Context, key repository.Key, status repository.Status) (repository.StockRecord, error) {
	update := bson.M{"$set": bson.M{"status": string(status), "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated StockDocument
	err := r.col.FindOneAndUpdate(ctx, keyFilter(key), update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.StockRecord{}, repository.ErrNotFound
		}
		return repository.StockRecord{}, fmt.Errorf("set status: %w", err)
	}
	return updated.toRecord(), nil
}
