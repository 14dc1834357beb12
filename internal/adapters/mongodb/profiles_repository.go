package mongodb

import (
	"context"
	"errors"
	"time"

	"chime-together/internal/domain/user"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ProfileBSON struct {
	ID         uuid.UUID `bson:"_id"`
	AuthUserId string    `bson:"authUserId"`
	Username   string    `bson:"username"`
	Email      string    `bson:"email"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type ProfilesRepository struct {
	client         *mongo.Client
	dbName         string
	collectionName string
}

var _ user.Repository = (*ProfilesRepository)(nil)

func NewProfilesRepository(client *mongo.Client, dbName string, collectionName string) *ProfilesRepository {
	return &ProfilesRepository{client: client, dbName: dbName, collectionName: collectionName}
}

// EnsureIndexes creates the unique authUserId index. The index is what
// makes CreateProfileIfAbsent race-free under duplicate delivery.
func (r *ProfilesRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "authUserId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *ProfilesRepository) CreateProfileIfAbsent(ctx context.Context, profile user.Profile) (bool, werrors.WError) {
	_, err := r.collection().InsertOne(ctx, ProfileBSON(profile))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, werrors.NewRetryableInternalError("failed to create profile: %s", err.Error())
	}
	return true, nil
}

func (r *ProfilesRepository) GetAll(ctx context.Context) ([]user.Profile, werrors.WError) {
	return r.findMany(ctx, bson.M{})
}

func (r *ProfilesRepository) GetByID(ctx context.Context, id uuid.UUID) (user.Profile, werrors.WError) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ProfilesRepository) GetByAuthUserID(ctx context.Context, authUserId string) (user.Profile, werrors.WError) {
	return r.findOne(ctx, bson.M{"authUserId": authUserId})
}

func (r *ProfilesRepository) SearchByUsername(ctx context.Context, username string) ([]user.Profile, werrors.WError) {
	return r.findMany(ctx, bson.M{"username": bson.M{"$regex": username, "$options": "i"}})
}

func (r *ProfilesRepository) ReplaceProfile(ctx context.Context, profile user.Profile) werrors.WError {
	result, err := r.collection().ReplaceOne(ctx, bson.M{"_id": profile.ID}, ProfileBSON(profile))
	if err != nil {
		return werrors.NewRetryableInternalError("failed to replace profile: %s", err.Error())
	}
	if result.MatchedCount == 0 {
		return werrors.NewResourceNotFoundError("profile not found: %s", profile.ID)
	}
	return nil
}

func (r *ProfilesRepository) DeleteProfile(ctx context.Context, id uuid.UUID) werrors.WError {
	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return werrors.NewRetryableInternalError("failed to delete profile: %s", err.Error())
	}
	if result.DeletedCount == 0 {
		return werrors.NewResourceNotFoundError("profile not found: %s", id)
	}
	return nil
}

func (r *ProfilesRepository) findOne(ctx context.Context, filter bson.M) (user.Profile, werrors.WError) {
	var profileBSON ProfileBSON
	err := r.collection().FindOne(ctx, filter).Decode(&profileBSON)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.Profile{}, werrors.NewResourceNotFoundError("profile not found")
		}
		return user.Profile{}, werrors.NewRetryableInternalError("failed to find profile: %s", err.Error())
	}
	return user.Profile(profileBSON), nil
}

func (r *ProfilesRepository) findMany(ctx context.Context, filter bson.M) ([]user.Profile, werrors.WError) {
	cursor, err := r.collection().Find(ctx, filter)
	if err != nil {
		return nil, werrors.NewRetryableInternalError("failed to find profiles: %s", err.Error())
	}
	var profilesBSON []ProfileBSON
	if err := cursor.All(ctx, &profilesBSON); err != nil {
		return nil, werrors.NewRetryableInternalError("failed to decode profiles: %s", err.Error())
	}
	profiles := make([]user.Profile, 0, len(profilesBSON))
	for _, profileBSON := range profilesBSON {
		profiles = append(profiles, user.Profile(profileBSON))
	}
	return profiles, nil
}

func (r *ProfilesRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collectionName)
}
