package mongodb

import (
	"context"
	"errors"
	"time"

	"chime-together/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/walletera/werrors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type NotificationBSON struct {
	ID         uuid.UUID `bson:"_id"`
	MessageId  string    `bson:"messageId"`
	ReceiverId string    `bson:"receiverId"`
	SenderId   string    `bson:"senderId"`
	Message    string    `bson:"message"`
	Timestamp  time.Time `bson:"timestamp"`
	Read       bool      `bson:"read"`
}

type NotificationsRepository struct {
	client         *mongo.Client
	dbName         string
	collectionName string
}

var _ notification.Repository = (*NotificationsRepository)(nil)

func NewNotificationsRepository(client *mongo.Client, dbName string, collectionName string) *NotificationsRepository {
	return &NotificationsRepository{client: client, dbName: dbName, collectionName: collectionName}
}

// EnsureIndexes creates the unique messageId index used for deduplication
// and the receiver listing index.
func (r *NotificationsRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "messageId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	return err
}

func (r *NotificationsRepository) CreateNotificationIfAbsent(ctx context.Context, n notification.Notification) (bool, werrors.WError) {
	_, err := r.collection().InsertOne(ctx, NotificationBSON(n))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, werrors.NewRetryableInternalError("failed to create notification: %s", err.Error())
	}
	return true, nil
}

func (r *NotificationsRepository) GetByReceiver(ctx context.Context, receiverId string) ([]notification.Notification, werrors.WError) {
	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.collection().Find(ctx, bson.M{"receiverId": receiverId}, findOpts)
	if err != nil {
		return nil, werrors.NewRetryableInternalError("failed to find notifications: %s", err.Error())
	}
	var notificationsBSON []NotificationBSON
	if err := cursor.All(ctx, &notificationsBSON); err != nil {
		return nil, werrors.NewRetryableInternalError("failed to decode notifications: %s", err.Error())
	}
	notifications := make([]notification.Notification, 0, len(notificationsBSON))
	for _, notificationBSON := range notificationsBSON {
		notifications = append(notifications, notification.Notification(notificationBSON))
	}
	return notifications, nil
}

func (r *NotificationsRepository) GetByID(ctx context.Context, id uuid.UUID) (notification.Notification, werrors.WError) {
	var notificationBSON NotificationBSON
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&notificationBSON)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notification.Notification{}, werrors.NewResourceNotFoundError("notification not found: %s", id)
		}
		return notification.Notification{}, werrors.NewRetryableInternalError("failed to find notification: %s", err.Error())
	}
	return notification.Notification(notificationBSON), nil
}

func (r *NotificationsRepository) Delete(ctx context.Context, id uuid.UUID) werrors.WError {
	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return werrors.NewRetryableInternalError("failed to delete notification: %s", err.Error())
	}
	if result.DeletedCount == 0 {
		return werrors.NewResourceNotFoundError("notification not found: %s", id)
	}
	return nil
}

func (r *NotificationsRepository) MarkRead(ctx context.Context, id uuid.UUID) werrors.WError {
	result, err := r.collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return werrors.NewRetryableInternalError("failed to mark notification read: %s", err.Error())
	}
	if result.MatchedCount == 0 {
		return werrors.NewResourceNotFoundError("notification not found: %s", id)
	}
	return nil
}

func (r *NotificationsRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collectionName)
}
