package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/QuizGoat/internal/types"
)

const (
	sessionsCollection  = "test_sessions"
	questionsCollection = "questions"
	profilesCollection  = "site_profiles"
)

// MongoStore writes sessions and questions to MongoDB. A question is one
// document with its choices embedded.
type MongoStore struct {
	client    *mongo.Client
	sessions  *mongo.Collection
	questions *mongo.Collection
	profiles  *mongo.Collection
	logger    *slog.Logger
}

// NewMongoStore connects to MongoDB and pings it.
func NewMongoStore(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		sessions:  db.Collection(sessionsCollection),
		questions: db.Collection(questionsCollection),
		profiles:  db.Collection(profilesCollection),
		logger:    logger.With("component", "mongo_storage"),
	}

	_, err = s.questions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "testSessionId", Value: 1}, {Key: "indexNumber", Value: 1}},
	})
	if err != nil {
		s.logger.Warn("could not create question index", "error", err)
	}
	return s, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) CreateSession(ctx context.Context, ts *types.TestSession) error {
	prepareSession(ts)
	if _, err := s.sessions.InsertOne(ctx, ts); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}

func (s *MongoStore) GetSession(ctx context.Context, id string) (*types.TestSession, error) {
	var ts types.TestSession
	err := s.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&ts)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return &ts, nil
}

func (s *MongoStore) UpdateSessionStatus(ctx context.Context, id string, status types.Status) error {
	res, err := s.sessions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	if res.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListSessions(ctx context.Context) ([]types.SessionSummary, error) {
	cur, err := s.sessions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	var sessions []types.TestSession
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}

	countCur, err := s.questions.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$testSessionId"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	var counts []struct {
		ID string `bson:"_id"`
		N  int    `bson:"n"`
	}
	if err := countCur.All(ctx, &counts); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	byID := make(map[string]int, len(counts))
	for _, c := range counts {
		byID[c.ID] = c.N
	}

	out := make([]types.SessionSummary, len(sessions))
	for i, ts := range sessions {
		out[i] = types.SessionSummary{TestSession: ts, QuestionCount: byID[ts.ID]}
	}
	return out, nil
}

func (s *MongoStore) SaveQuestion(ctx context.Context, q *types.Question) error {
	prepareQuestion(q)
	if _, err := s.questions.InsertOne(ctx, q); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("mongodb insert: %w", err)}
	}
	s.logger.Debug("question stored in mongodb", "session", q.TestSessionID, "index", q.IndexNumber)
	return nil
}

func (s *MongoStore) ListQuestions(ctx context.Context, sessionID string) ([]types.Question, error) {
	cur, err := s.questions.Find(ctx,
		bson.M{"testSessionId": sessionID},
		options.Find().SetSort(bson.D{{Key: "indexNumber", Value: 1}}),
	)
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	var qs []types.Question
	if err := cur.All(ctx, &qs); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	for i := range qs {
		choices := qs[i].Choices
		sort.SliceStable(choices, func(a, b int) bool { return choices[a].Position < choices[b].Position })
	}
	return qs, nil
}

func (s *MongoStore) CreateProfile(ctx context.Context, p *types.SiteProfile) error {
	prepareProfile(p)
	if _, err := s.profiles.InsertOne(ctx, p); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}

func (s *MongoStore) ListProfiles(ctx context.Context) ([]types.SiteProfile, error) {
	cur, err := s.profiles.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	var out []types.SiteProfile
	if err := cur.All(ctx, &out); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return out, nil
}

func (s *MongoStore) UpdateProfileSelectors(ctx context.Context, id string, sm types.SelectorMap) (*types.SiteProfile, error) {
	var p types.SiteProfile
	err := s.profiles.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"selectorMap": sm, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return &p, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
