package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ansas/internal/model"
	"ansas/internal/utils"
)

// 数据库操作超时
const (
	DefaultDBTimeout = 10 * time.Second
	ShortDBTimeout   = 5 * time.Second
)

// MongoStore 保存到 MongoDB 的 scans 集合
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *utils.Logger
}

// scanDocument 集合中的文档，摘要字段放在顶层，列表查询可以去掉 scan_data
type scanDocument struct {
	model.EnrichedResult `bson:",inline"`

	AssetCount int             `bson:"asset_count"`
	Status     model.Status    `bson:"status"`
	RiskLevel  model.RiskLevel `bson:"risk_level"`
}

func newScanDocument(result *model.EnrichedResult) scanDocument {
	summary := result.Summarize()
	return scanDocument{
		EnrichedResult: *result,
		AssetCount:     summary.AssetCount,
		Status:         summary.Status,
		RiskLevel:      summary.RiskLevel,
	}
}

// NewMongoStore 连接 MongoDB 并确认可用
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("连接MongoDB失败: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB不可用: %w", err)
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     utils.NewLogger("store"),
	}
	s.logger.Info("已连接MongoDB: %s.%s", database, collection)
	return s, nil
}

func (s *MongoStore) Save(ctx context.Context, result *model.EnrichedResult) (string, error) {
	if err := prepare(result); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, newScanDocument(result)); err != nil {
		return "", fmt.Errorf("保存扫描结果失败: %w", err)
	}

	s.logger.Debug("已保存扫描结果 %s (%s)", result.ScanID, result.Owner)
	return result.ScanID, nil
}

func (s *MongoStore) List(ctx context.Context, owner string) ([]model.ScanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDBTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "upload_date", Value: -1}}).
		SetProjection(bson.M{"scan_data": 0})

	cursor, err := s.collection.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []model.ScanRecord{}
	for cursor.Next(ctx) {
		var record model.ScanRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, cursor.Err()
}

func (s *MongoStore) Get(ctx context.Context, owner, scanID string) (*model.EnrichedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ShortDBTimeout)
	defer cancel()

	var result model.EnrichedResult
	err := s.collection.FindOne(ctx, bson.M{"_id": scanID, "user": owner}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultDBTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
