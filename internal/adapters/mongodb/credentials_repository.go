package mongodb

import (
	"context"
	"errors"
	"time"

	"chime-together/internal/domain/auth"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type CredentialsBSON struct {
	ID           uuid.UUID `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type CredentialsRepository struct {
	client         *mongo.Client
	dbName         string
	collectionName string
}

var _ auth.Repository = (*CredentialsRepository)(nil)

func NewCredentialsRepository(client *mongo.Client, dbName string, collectionName string) *CredentialsRepository {
	return &CredentialsRepository{client: client, dbName: dbName, collectionName: collectionName}
}

// EnsureIndexes creates the unique email index the conditioned insert in
// CreateCredentials relies on.
func (r *CredentialsRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *CredentialsRepository) CreateCredentials(ctx context.Context, credentials auth.Credentials) (bool, werrors.WError) {
	_, err := r.collection().InsertOne(ctx, CredentialsBSON(credentials))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, werrors.NewRetryableInternalError("failed to create credentials: %s", err.Error())
	}
	return true, nil
}

func (r *CredentialsRepository) GetByEmail(ctx context.Context, email string) (auth.Credentials, werrors.WError) {
	var credentialsBSON CredentialsBSON
	err := r.collection().FindOne(ctx, bson.M{"email": email}).Decode(&credentialsBSON)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return auth.Credentials{}, werrors.NewResourceNotFoundError("credentials not found for email %s", email)
		}
		return auth.Credentials{}, werrors.NewRetryableInternalError("failed to find credentials: %s", err.Error())
	}
	return auth.Credentials(credentialsBSON), nil
}

func (r *CredentialsRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, username string, email string) werrors.WError {
	result, err := r.collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"username": username, "email": email}},
	)
	if err != nil {
		return werrors.NewRetryableInternalError("failed to update credentials: %s", err.Error())
	}
	if result.MatchedCount == 0 {
		return werrors.NewResourceNotFoundError("credentials not found for user %s", id)
	}
	return nil
}

func (r *CredentialsRepository) DeleteCredentials(ctx context.Context, id uuid.UUID) werrors.WError {
	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return werrors.NewRetryableInternalError("failed to delete credentials: %s", err.Error())
	}
	if result.DeletedCount == 0 {
		return werrors.NewResourceNotFoundError("credentials not found for user %s", id)
	}
	return nil
}

func (r *CredentialsRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collectionName)
}
