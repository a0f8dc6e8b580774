package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// MongoRepository implements the Repository interface with the certificate
// domain on MongoDB. Account stores (users, sessions, email tokens) stay on
// the SQL repository passed in at construction; only submissions,
// certificates and verification logs live in mongo collections.
type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	accounts repositories.Repository

	submissions      repositories.SubmissionRepository
	certificates     repositories.CertificateRepository
	verificationLogs repositories.VerificationLogRepository
}

// NewMongoRepository connects to MongoDB, ensures indexes and wraps the
// SQL-backed account repository.
func NewMongoRepository(ctx context.Context, uri, dbName string, accounts repositories.Repository) (repositories.Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(dbName)
	counters := newCounters(db.Collection("counters"))

	repo := &MongoRepository{
		client:   client,
		database: db,
		accounts: accounts,

		submissions:      newSubmissionMongo(db.Collection("form_submissions"), counters),
		certificates:     newCertificateMongo(db.Collection("certificates"), counters),
		verificationLogs: newVerificationLogMongo(db.Collection("verification_logs"), counters),
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.database.Collection("certificates").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ref_no", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "verification_url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo certificate indexes: %w", err)
	}

	_, err = r.database.Collection("verification_logs").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ref_no", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo verification log indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Users() repositories.UserRepository {
	return r.accounts.Users()
}

func (r *MongoRepository) Sessions() repositories.SessionRepository {
	return r.accounts.Sessions()
}

func (r *MongoRepository) EmailTokens() repositories.EmailTokenRepository {
	return r.accounts.EmailTokens()
}

func (r *MongoRepository) Submissions() repositories.SubmissionRepository {
	return r.submissions
}

func (r *MongoRepository) Certificates() repositories.CertificateRepository {
	return r.certificates
}

func (r *MongoRepository) VerificationLogs() repositories.VerificationLogRepository {
	return r.verificationLogs
}

// WithTransaction spans only the SQL-backed account stores. The mongo
// collections are not enlisted; certificate writes rely on per-operation
// atomicity (findAndModify) instead.
func (r *MongoRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.accounts.WithTransaction(ctx, func(txAccounts repositories.Repository) error {
		txRepo := &MongoRepository{
			client:           r.client,
			database:         r.database,
			accounts:         txAccounts,
			submissions:      r.submissions,
			certificates:     r.certificates,
			verificationLogs: r.verificationLogs,
		}
		return fn(txRepo)
	})
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return r.accounts.Ping(ctx)
}

func (r *MongoRepository) Close() error {
	if err := r.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	return r.accounts.Close()
}

// counters hands out monotonically increasing numeric ids per collection,
// the usual findAndModify pattern.
type counters struct {
	collection *mongo.Collection
}

func newCounters(collection *mongo.Collection) *counters {
	return &counters{collection: collection}
}

func (c *counters) next(ctx context.Context, name string) (uint, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := c.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", name, err)
	}
	return uint(doc.Seq), nil
}
