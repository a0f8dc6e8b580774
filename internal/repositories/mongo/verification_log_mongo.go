package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

type verificationLogMongo struct {
	collection *mongo.Collection
	counters   *counters
}

func newVerificationLogMongo(collection *mongo.Collection, counters *counters) *verificationLogMongo {
	return &verificationLogMongo{collection: collection, counters: counters}
}

func (r *verificationLogMongo) Create(ctx context.Context, entry *models.VerificationLog) error {
	id, err := r.counters.next(ctx, "verification_logs")
	if err != nil {
		return err
	}
	entry.ID = id
	entry.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, toVerificationLogDoc(entry)); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *verificationLogMongo) List(ctx context.Context, filters repositories.VerificationLogFilters) ([]*models.VerificationLog, int64, error) {
	query := bson.M{}
	if filters.RefNo != nil {
		query["ref_no"] = *filters.RefNo
	}
	if filters.Status != nil {
		query["status"] = *filters.Status
	}
	dateRange := bson.M{}
	if filters.DateFrom != nil {
		dateRange["$gte"] = *filters.DateFrom
	}
	if filters.DateTo != nil {
		dateRange["$lte"] = *filters.DateTo
	}
	if len(dateRange) > 0 {
		query["created_at"] = dateRange
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, translateError(err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filters.Limit > 0 {
		opts.SetLimit(int64(filters.Limit))
	}
	if filters.Offset > 0 {
		opts.SetSkip(int64(filters.Offset))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, translateError(err)
	}
	defer cursor.Close(ctx)

	var entries []*models.VerificationLog
	for cursor.Next(ctx) {
		var doc verificationLogDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, err
		}
		entries = append(entries, doc.toModel())
	}
	return entries, total, cursor.Err()
}

func (r *verificationLogMongo) CountByRefNo(ctx context.Context, refNo string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"ref_no": refNo})
	return count, translateError(err)
}
