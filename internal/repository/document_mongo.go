package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/futig/benchwatch/internal/entity"
	pkgRetry "github.com/futig/benchwatch/internal/pkg/retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	statusCollection = "ingestion_status"
	chunkCollection  = "chunks"
	qaCollection     = "qa_pairs"
)

// DocumentRepository keeps ingestion status and the chunk/QA aggregates.
type DocumentRepository interface {
	SaveStatus(ctx context.Context, status *entity.IngestionStatus) error
	GetStatus(ctx context.Context, projectID string) (*entity.IngestionStatus, error)
	SaveChunks(ctx context.Context, set *entity.ChunkSet) (string, error)
	SaveQAPairs(ctx context.Context, set *entity.QASet) (string, error)
	LatestQAPairs(ctx context.Context, projectID string) (*entity.QASet, error)
}

var _ DocumentRepository = &DocumentMongo{}

type DocumentMongo struct {
	db    *mongo.Database
	retry pkgRetry.RetryConfig
}

func NewDocumentMongo(db *mongo.Database, retryCfg pkgRetry.RetryConfig) *DocumentMongo {
	return &DocumentMongo{
		db:    db,
		retry: retryCfg,
	}
}

// EnsureIndexes creates the lookup indexes used by this repository.
func (r *DocumentMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(statusCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "project_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create status index: %w", err)
	}

	for _, name := range []string{chunkCollection, qaCollection} {
		_, err := r.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("create %s index: %w", name, err)
		}
	}
	return nil
}

// SaveStatus replaces the project's status document, creating it if needed.
func (r *DocumentMongo) SaveStatus(ctx context.Context, status *entity.IngestionStatus) error {
	err := r.write(ctx, func() error {
		_, err := r.db.Collection(statusCollection).ReplaceOne(ctx,
			bson.M{"project_id": status.ProjectID},
			status,
			options.Replace().SetUpsert(true),
		)
		return err
	})
	if err != nil {
		return entity.NewPersistenceError(status.ProjectID, "save_status", err)
	}
	return nil
}

func (r *DocumentMongo) GetStatus(ctx context.Context, projectID string) (*entity.IngestionStatus, error) {
	var status entity.IngestionStatus
	err := r.db.Collection(statusCollection).FindOne(ctx, bson.M{"project_id": projectID}).Decode(&status)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrStatusNotFound
		}
		return nil, fmt.Errorf("get ingestion status: %w", err)
	}
	return &status, nil
}

func (r *DocumentMongo) SaveChunks(ctx context.Context, set *entity.ChunkSet) (string, error) {
	id, err := r.insert(ctx, chunkCollection, set)
	if err != nil {
		return "", entity.NewPersistenceError(set.ProjectID, "save_chunks", err)
	}
	return id, nil
}

func (r *DocumentMongo) SaveQAPairs(ctx context.Context, set *entity.QASet) (string, error) {
	id, err := r.insert(ctx, qaCollection, set)
	if err != nil {
		return "", entity.NewPersistenceError(set.ProjectID, "save_qa_pairs", err)
	}
	return id, nil
}

// LatestQAPairs returns the newest QA set, which supersedes older runs.
func (r *DocumentMongo) LatestQAPairs(ctx context.Context, projectID string) (*entity.QASet, error) {
	var set entity.QASet
	err := r.db.Collection(qaCollection).FindOne(ctx,
		bson.M{"project_id": projectID},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrNoQAPairs
		}
		return nil, fmt.Errorf("get qa pairs: %w", err)
	}
	return &set, nil
}

func (r *DocumentMongo) insert(ctx context.Context, collection string, doc any) (string, error) {
	// Generated up front so a retried insert cannot create a duplicate.
	id := primitive.NewObjectID()
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}
	var withID bson.D
	if err := bson.Unmarshal(raw, &withID); err != nil {
		return "", fmt.Errorf("decode %s document: %w", collection, err)
	}
	withID = append(bson.D{{Key: "_id", Value: id}}, withID...)

	err = r.write(ctx, func() error {
		_, err := r.db.Collection(collection).InsertOne(ctx, withID)
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

func (r *DocumentMongo) write(ctx context.Context, fn func() error) error {
	return r.retry.Do(ctx, func() error {
		err := fn()
		if err != nil && !isTransient(err) {
			return retry.Unrecoverable(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}
