// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MarceTxt/gwen-ai-chat/internal/model"
)

// =============================================================================
// MONGO STORE
// =============================================================================

// Mongo stores each conversation as one document with an embedded message
// array. Live subscriptions use change streams, which need a replica set.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// OpenMongo connects to uri and prepares the conversations collection in
// database.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	coll := client.Database(database).Collection("conversations")
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "updatedAt", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to create conversation index")
	}

	return &Mongo{
		client: client,
		coll:   coll,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close disconnects from the server.
func (s *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Wrap(s.client.Disconnect(ctx), "failed to disconnect from MongoDB")
}

func owned(userID, convID string) bson.M {
	return bson.M{"_id": convID, "ownerId": userID}
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// List returns the user's conversations, most recently updated first.
func (s *Mongo) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"ownerId": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}

	var convs []model.Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, errors.Wrap(err, "failed to decode conversations")
	}
	for i := range convs {
		normalize(&convs[i])
	}
	return convs, nil
}

// Get returns one conversation.
func (s *Mongo) Get(ctx context.Context, userID, convID string) (model.Conversation, error) {
	var conv model.Conversation
	err := s.coll.FindOne(ctx, owned(userID, convID)).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Conversation{}, ErrNotFound
	}
	if err != nil {
		return model.Conversation{}, errors.Wrap(err, "failed to load conversation")
	}
	normalize(&conv)
	return conv, nil
}

func normalize(c *model.Conversation) {
	if c.Messages == nil {
		c.Messages = []model.Message{}
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	for i := range c.Messages {
		c.Messages[i].Timestamp = c.Messages[i].Timestamp.UTC()
	}
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Create inserts conv for userID and returns its id.
func (s *Mongo) Create(ctx context.Context, userID string, conv model.Conversation) (string, error) {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.Name == "" {
		conv.Name = model.DefaultName
	}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	now := s.now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	conv.OwnerID = userID

	if _, err := s.coll.InsertOne(ctx, conv); err != nil {
		return "", errors.Wrap(err, "failed to insert conversation")
	}
	return conv.ID, nil
}

// Update merges fields into the conversation.
func (s *Mongo) Update(ctx context.Context, userID, convID string, fields Fields) error {
	set := bson.M{"updatedAt": fields.updatedAt()}
	if fields.Name != nil {
		set["name"] = *fields.Name
	}

	res, err := s.coll.UpdateOne(ctx, owned(userID, convID), bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "failed to update conversation")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage pushes msg unless a message with the same id is present.
func (s *Mongo) AppendMessage(ctx context.Context, userID, convID string, msg model.Message) error {
	if msg.ID == "" {
		return errors.New("message id is required")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}

	filter := owned(userID, convID)
	filter["messages.id"] = bson.M{"$ne": msg.ID}
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updatedAt": s.now()},
	}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrap(err, "failed to append message")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// No match: either a retry of a stored message or no such conversation
	n, err := s.coll.CountDocuments(ctx, owned(userID, convID))
	if err != nil {
		return errors.Wrap(err, "failed to look up conversation")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one conversation.
func (s *Mongo) Delete(ctx context.Context, userID, convID string) error {
	res, err := s.coll.DeleteOne(ctx, owned(userID, convID))
	if err != nil {
		return errors.Wrap(err, "failed to delete conversation")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// BatchDelete removes every listed conversation or none of them.
func (s *Mongo) BatchDelete(ctx context.Context, userID string, ids []string) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}

	session, err := s.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "failed to start session")
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		res, err := s.coll.DeleteMany(txCtx, bson.M{"ownerId": userID, "_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount != int64(len(ids)) {
			return nil, ErrBatchAborted
		}
		return nil, nil
	})
	if errors.Is(err, ErrBatchAborted) {
		return err
	}
	return errors.Wrap(err, "failed to delete conversations")
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

type changeEvent struct {
	OperationType string              `bson:"operationType"`
	FullDocument  *model.Conversation `bson:"fullDocument"`
}

// Subscribe delivers the conversation to fn now and after every change,
// on a single goroutine, until the subscription is cancelled.
func (s *Mongo) Subscribe(ctx context.Context, userID, convID string, fn func(model.Conversation)) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: convID}}}},
	}
	stream, err := s.coll.Watch(subCtx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "failed to open change stream")
	}

	conv, err := s.Get(ctx, userID, convID)
	if err != nil {
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())

		last := keyOf(conv)
		fn(conv)

		for stream.Next(subCtx) {
			var event changeEvent
			if err := stream.Decode(&event); err != nil {
				log.Warn().Err(err).Str("conversation_id", convID).Msg("failed to decode change event")
				continue
			}
			if event.FullDocument == nil || event.FullDocument.OwnerID != userID {
				continue
			}
			latest := *event.FullDocument
			normalize(&latest)
			if key := keyOf(latest); key != last && subCtx.Err() == nil {
				last = key
				fn(latest)
			}
		}
		if err := stream.Err(); err != nil && subCtx.Err() == nil {
			log.Error().Err(err).Str("conversation_id", convID).Msg("change stream stopped")
		}
	}()

	return newSubscription(cancel, done), nil
}
