package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/codgamerofficial/Kultzr/internal/domain"
)

type cartDocument struct {
	ID        string         `bson:"_id,omitempty"`
	SessionID string         `bson:"session_id"`
	Items     []itemDocument `bson:"items"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

// itemDocument stores UnitPrice as a string so the decimal survives the
// bson round trip without float drift.
type itemDocument struct {
	ProductID   int64     `bson:"product_id"`
	VariantID   int64     `bson:"variant_id,omitempty"`
	ProductName string    `bson:"product_name"`
	Size        string    `bson:"size,omitempty"`
	Color       string    `bson:"color,omitempty"`
	UnitPrice   string    `bson:"unit_price"`
	Quantity    int       `bson:"quantity"`
	AddedAt     time.Time `bson:"added_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) SaveCart(ctx context.Context, sessionID string, items []domain.LineItem) error {
	now := time.Now()

	docs := make([]itemDocument, len(items))
	for i, item := range items {
		docs[i] = itemDocument{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Color:       item.Color,
			UnitPrice:   item.UnitPrice.String(),
			Quantity:    item.Quantity,
			AddedAt:     item.AddedAt,
		}
	}

	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"items":      docs,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"session_id": sessionID,
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

func (m *MongoRepository) LoadCart(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	var doc cartDocument

	filter := bson.M{"session_id": sessionID}
	err := m.collection.FindOne(ctx, filter).Decode(&doc)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	items := make([]domain.LineItem, len(doc.Items))
	for i, d := range doc.Items {
		price, err := decimal.NewFromString(d.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("bad unit price %q in stored cart: %w", d.UnitPrice, err)
		}
		items[i] = domain.LineItem{
			ProductID:   d.ProductID,
			VariantID:   d.VariantID,
			ProductName: d.ProductName,
			Size:        d.Size,
			Color:       d.Color,
			UnitPrice:   price,
			Quantity:    d.Quantity,
			AddedAt:     d.AddedAt,
		}
	}

	return items, nil
}

func (m *MongoRepository) ClearCart(ctx context.Context, sessionID string) error {
	filter := bson.M{"session_id": sessionID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
