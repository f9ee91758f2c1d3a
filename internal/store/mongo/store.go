// Package mongo stores wiki documents in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"mwiki/internal/content"
	"mwiki/internal/store"
)

const collectionName = "pages"

type Store struct {
	client *mongo.Client
	pages  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

type record struct {
	ID        string    `bson:"_id"`
	URL       string    `bson:"url"`
	Content   string    `bson:"content"`
	HTML      string    `bson:"html,omitempty"`
	Meta      bson.D    `bson:"meta"`
	PageMeta  bson.D    `bson:"page_meta,omitempty"`
	Tags      string    `bson:"tags"`
	Author    string    `bson:"author"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	pages := client.Database(database).Collection(collectionName)
	_, err = pages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create indexes for %s: %w", collectionName, err)
	}
	slog.Debug("mongo store open", "database", database, "collection", collectionName)
	return &Store{client: client, pages: pages}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Count(ctx context.Context, filter store.Filter) (int64, error) {
	return s.pages.CountDocuments(ctx, compileFilter(filter))
}

func (s *Store) FindOne(ctx context.Context, filter store.Filter) (*store.Document, error) {
	var rec record
	err := s.pages.FindOne(ctx, compileFilter(filter), options.FindOne().SetSort(naturalOrder())).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	doc := rec.document()
	return &doc, nil
}

func (s *Store) Find(ctx context.Context, filter store.Filter) ([]store.Document, error) {
	cur, err := s.pages.Find(ctx, compileFilter(filter), options.Find().SetSort(naturalOrder()))
	if err != nil {
		return nil, err
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	docs := make([]store.Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, rec.document())
	}
	return docs, nil
}

func (s *Store) Upsert(ctx context.Context, doc store.Document) error {
	if doc.URL == "" {
		return errors.New("upsert: empty url")
	}
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := doc.CreatedAt
	if created.IsZero() {
		created = doc.UpdatedAt
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "url", Value: doc.URL},
			{Key: "content", Value: doc.Content},
			{Key: "html", Value: doc.HTML},
			{Key: "meta", Value: metaToBSON(doc.Meta)},
			{Key: "page_meta", Value: metaToBSON(doc.PageMeta)},
			{Key: "tags", Value: doc.Tags},
			{Key: "author", Value: doc.Author},
			{Key: "updated_at", Value: doc.UpdatedAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "created_at", Value: created},
		}},
	}
	_, err := s.pages.UpdateOne(ctx, bson.D{{Key: "url", Value: doc.URL}}, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (s *Store) SetURL(ctx context.Context, oldURL, newURL string) (int64, error) {
	res, err := s.pages.UpdateOne(ctx,
		bson.D{{Key: "url", Value: oldURL}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "url", Value: newURL}}}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("set url %s: %q already taken: %w", oldURL, newURL, err)
		}
		return 0, err
	}
	return res.MatchedCount, nil
}

func (s *Store) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	res, err := s.pages.DeleteOne(ctx, compileFilter(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func naturalOrder() bson.D {
	return bson.D{{Key: "$natural", Value: 1}}
}

func (r record) document() store.Document {
	var pageMeta *content.Meta
	if r.PageMeta != nil {
		pageMeta = metaFromBSON(r.PageMeta)
	}
	return store.Document{
		ID:        r.ID,
		URL:       r.URL,
		Content:   r.Content,
		HTML:      r.HTML,
		Meta:      metaFromBSON(r.Meta),
		PageMeta:  pageMeta,
		Tags:      r.Tags,
		Author:    r.Author,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func metaToBSON(m *content.Meta) bson.D {
	out := bson.D{}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out = append(out, bson.E{Key: k, Value: v})
	}
	return out
}

func metaFromBSON(d bson.D) *content.Meta {
	m := content.NewMeta()
	for _, e := range d {
		switch v := e.Value.(type) {
		case string:
			m.Set(e.Key, v)
		case nil:
			m.Set(e.Key, "")
		default:
			m.Set(e.Key, fmt.Sprint(v))
		}
	}
	return m
}

// compileFilter translates a conjunction into a Mongo query document.
func compileFilter(filter store.Filter) bson.D {
	if len(filter) == 0 {
		return bson.D{}
	}
	parts := make([]bson.D, 0, len(filter))
	for _, cond := range filter {
		field := cond.Field
		if field == "id" {
			field = "_id"
		}
		switch cond.Op {
		case store.Regex:
			opts := ""
			if cond.IgnoreCase {
				opts = "i"
			}
			parts = append(parts, bson.D{{Key: field, Value: bson.D{
				{Key: "$regex", Value: cond.Value},
				{Key: "$options", Value: opts},
			}}})
		default:
			parts = append(parts, bson.D{{Key: field, Value: cond.Value}})
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	and := make(bson.A, 0, len(parts))
	for _, p := range parts {
		and = append(and, p)
	}
	return bson.D{{Key: "$and", Value: and}}
}
