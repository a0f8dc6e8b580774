package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// certificateMongo implements CertificateRepository on a mongo collection.
// Counter updates go through findAndModify so concurrent verifications of
// the same code never lose increments.
type certificateMongo struct {
	collection *mongo.Collection
	counters   *counters
}

func newCertificateMongo(collection *mongo.Collection, counters *counters) *certificateMongo {
	return &certificateMongo{collection: collection, counters: counters}
}

// notDeleted excludes soft-deleted documents.
var notDeleted = bson.M{"deleted_at": nil}

func (r *certificateMongo) filter(extra bson.M) bson.M {
	f := bson.M{"deleted_at": nil}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func (r *certificateMongo) Create(ctx context.Context, cert *models.Certificate) error {
	id, err := r.counters.next(ctx, "certificates")
	if err != nil {
		return err
	}
	cert.ID = id
	now := time.Now()
	cert.CreatedAt = now
	cert.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, toCertificateDoc(cert)); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *certificateMongo) GetByID(ctx context.Context, id uint) (*models.Certificate, error) {
	var doc certificateDoc
	err := r.collection.FindOne(ctx, r.filter(bson.M{"_id": id})).Decode(&doc)
	if err != nil {
		return nil, translateError(err)
	}
	return doc.toModel(), nil
}

func (r *certificateMongo) GetByRefNo(ctx context.Context, refNo string) (*models.Certificate, error) {
	var doc certificateDoc
	err := r.collection.FindOne(ctx, r.filter(bson.M{"ref_no": refNo})).Decode(&doc)
	if err != nil {
		return nil, translateError(err)
	}
	return doc.toModel(), nil
}

func (r *certificateMongo) List(ctx context.Context, filters repositories.CertificateFilters) ([]*models.Certificate, int64, error) {
	query := r.filter(nil)
	if filters.Type != nil {
		query["certificate_type"] = *filters.Type
	}
	if filters.IsActive != nil {
		query["is_active"] = *filters.IsActive
	}
	if filters.UserID != nil {
		query["user_id"] = *filters.UserID
	}
	if filters.Batch != nil {
		query["batch"] = *filters.Batch
	}
	if filters.Search != "" {
		regex := bson.M{"$regex": filters.Search, "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"holder_name": regex},
			bson.M{"course": regex},
			bson.M{"ref_no": regex},
		}
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

	opts := options.Find().SetSort(sortSpec(filters.SortBy, filters.SortOrder))
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

	var certs []*models.Certificate
	for cursor.Next(ctx) {
		var doc certificateDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, err
		}
		certs = append(certs, doc.toModel())
	}
	return certs, total, cursor.Err()
}

func (r *certificateMongo) ExistsByRefNo(ctx context.Context, refNo string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, r.filter(bson.M{"ref_no": refNo}))
	return count > 0, translateError(err)
}

func (r *certificateMongo) SetActive(ctx context.Context, id uint, active bool) error {
	res, err := r.collection.UpdateOne(ctx,
		r.filter(bson.M{"_id": id}),
		bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now()}})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *certificateMongo) ClaimForUser(ctx context.Context, refNo string, userID uint) error {
	res, err := r.collection.UpdateOne(ctx,
		r.filter(bson.M{"ref_no": refNo, "user_id": nil, "is_active": true}),
		bson.M{"$set": bson.M{"user_id": userID, "updated_at": time.Now()}})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		cert, err := r.GetByRefNo(ctx, refNo)
		if err != nil {
			return err
		}
		if cert.UserID != nil {
			if *cert.UserID == userID {
				return nil // already claimed by this user, idempotent
			}
			return repositories.ErrDuplicate
		}
		// Unowned but inactive: same contract as verification lookups.
		return repositories.ErrNotFound
	}
	return nil
}

func (r *certificateMongo) IncrementVerification(ctx context.Context, refNo string, at time.Time) (*models.Certificate, error) {
	var doc certificateDoc
	err := r.collection.FindOneAndUpdate(ctx,
		r.filter(bson.M{"ref_no": refNo, "is_active": true}),
		bson.M{
			"$inc": bson.M{"verification_count": 1},
			"$set": bson.M{"last_verified_at": at, "updated_at": at},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translateError(err)
	}
	return doc.toModel(), nil
}

func (r *certificateMongo) Stats(ctx context.Context) (*repositories.CertificateStats, error) {
	stats := &repositories.CertificateStats{
		ByType: make(map[models.CertificateType]int64),
	}

	var err error
	if stats.TotalCertificates, err = r.collection.CountDocuments(ctx, r.filter(nil)); err != nil {
		return nil, translateError(err)
	}
	if stats.ActiveCertificates, err = r.collection.CountDocuments(ctx, r.filter(bson.M{"is_active": true})); err != nil {
		return nil, translateError(err)
	}
	if stats.IssuedLast30Days, err = r.collection.CountDocuments(ctx,
		r.filter(bson.M{"created_at": bson.M{"$gte": time.Now().AddDate(0, 0, -30)}})); err != nil {
		return nil, translateError(err)
	}

	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: notDeleted}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$certificate_type",
			"count":         bson.M{"$sum": 1},
			"verifications": bson.M{"$sum": "$verification_count"},
		}}},
	})
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			Type          models.CertificateType `bson:"_id"`
			Count         int64                  `bson:"count"`
			Verifications int64                  `bson:"verifications"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		stats.ByType[row.Type] = row.Count
		stats.TotalVerifications += row.Verifications
	}
	return stats, cursor.Err()
}

func (r *certificateMongo) Delete(ctx context.Context, id uint) error {
	res, err := r.collection.UpdateOne(ctx,
		r.filter(bson.M{"_id": id}),
		bson.M{"$set": bson.M{"deleted_at": time.Now()}})
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func sortSpec(sortBy, sortOrder string) bson.D {
	allowed := map[string]bool{
		"created_at": true, "issue_date": true, "holder_name": true,
		"course": true, "ref_no": true, "verification_count": true,
	}
	if !allowed[sortBy] {
		sortBy = "created_at"
	}
	dir := -1
	if sortOrder == "asc" || sortOrder == "ASC" {
		dir = 1
	}
	return bson.D{{Key: sortBy, Value: dir}}
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repositories.ErrDuplicate
	default:
		return err
	}
}
