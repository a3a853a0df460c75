// internal/database/cache.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pawchat/internal/models"
)

// Cache is an optional write-through store of the last fetched directory
// and message pages, so the client can show history while the backend is
// unreachable. It is never the source of truth.
type Cache struct {
	Client        *mongo.Client
	Conversations *mongo.Collection
	Messages      *mongo.Collection
}

type cachedConversation struct {
	ID       string               `bson:"_id"`
	Document *models.Conversation `bson:"document"`
	CachedAt time.Time            `bson:"cachedAt"`
}

type cachedMessage struct {
	ID       string          `bson:"_id"`
	ChatID   string          `bson:"chatId"`
	Document *models.Message `bson:"document"`
	CachedAt time.Time       `bson:"cachedAt"`
}

func NewCache(uri string) (*Cache, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("History cache connected to MongoDB")

	db := client.Database("pawchat")
	return &Cache{
		Client:        client,
		Conversations: db.Collection("conversations"),
		Messages:      db.Collection("messages"),
	}, nil
}

func (c *Cache) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}

// SaveConversations upserts the fetched directory snapshot.
func (c *Cache) SaveConversations(ctx context.Context, conversations []*models.Conversation) error {
	for _, conv := range conversations {
		doc := &cachedConversation{
			ID:       conv.ID.String(),
			Document: conv,
			CachedAt: time.Now(),
		}
		filter := bson.M{"_id": doc.ID}
		update := bson.M{"$set": doc}
		if _, err := c.Conversations.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("failed to cache conversation %s: %v", conv.ID, err)
		}
	}
	return nil
}

// LoadConversations returns the last cached directory snapshot.
func (c *Cache) LoadConversations(ctx context.Context) ([]*models.Conversation, error) {
	cursor, err := c.Conversations.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to load cached conversations: %v", err)
	}
	defer cursor.Close(ctx)

	var conversations []*models.Conversation
	for cursor.Next(ctx) {
		doc := &cachedConversation{}
		if err := cursor.Decode(doc); err != nil {
			return nil, fmt.Errorf("failed to decode cached conversation: %v", err)
		}
		conversations = append(conversations, doc.Document)
	}
	return conversations, cursor.Err()
}

// SaveMessages upserts one fetched or live message batch.
func (c *Cache) SaveMessages(ctx context.Context, chatID uuid.UUID, messages []*models.Message) error {
	for _, msg := range messages {
		doc := &cachedMessage{
			ID:       msg.ID.String(),
			ChatID:   chatID.String(),
			Document: msg,
			CachedAt: time.Now(),
		}
		filter := bson.M{"_id": doc.ID}
		update := bson.M{"$set": doc}
		if _, err := c.Messages.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("failed to cache message %s: %v", msg.ID, err)
		}
	}
	return nil
}

// LoadMessages returns cached messages for one conversation, oldest first.
func (c *Cache) LoadMessages(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "document.createdAt", Value: 1}})
	cursor, err := c.Messages.Find(ctx, bson.M{"chatId": chatID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.Message
	for cursor.Next(ctx) {
		doc := &cachedMessage{}
		if err := cursor.Decode(doc); err != nil {
			return nil, fmt.Errorf("failed to decode cached message: %v", err)
		}
		messages = append(messages, doc.Document)
	}
	return messages, cursor.Err()
}

// DeleteConversation drops a conversation and its cached messages after an
// explicit removal.
func (c *Cache) DeleteConversation(ctx context.Context, chatID uuid.UUID) error {
	if _, err := c.Conversations.DeleteOne(ctx, bson.M{"_id": chatID.String()}); err != nil {
		return fmt.Errorf("failed to delete cached conversation: %v", err)
	}
	if _, err := c.Messages.DeleteMany(ctx, bson.M{"chatId": chatID.String()}); err != nil {
		return fmt.Errorf("failed to delete cached messages: %v", err)
	}
	return nil
}
