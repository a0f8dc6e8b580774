package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

type submissionMongo struct {
	collection *mongo.Collection
	counters   *counters
}

func newSubmissionMongo(collection *mongo.Collection, counters *counters) *submissionMongo {
	return &submissionMongo{collection: collection, counters: counters}
}

func (r *submissionMongo) Create(ctx context.Context, submission *models.Submission) error {
	id, err := r.counters.next(ctx, "form_submissions")
	if err != nil {
		return err
	}
	submission.ID = id
	now := time.Now()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, toSubmissionDoc(submission)); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *submissionMongo) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	var doc submissionDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.toModel(), nil
}

func (r *submissionMongo) UpdateStatus(ctx context.Context, id uint, status models.SubmissionStatus) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
