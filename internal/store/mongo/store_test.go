package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/v2/bson"

	"mwiki/internal/content"
	"mwiki/internal/store"
)

func TestCompileFilter(t *testing.T) {
	if diff := cmp.Diff(bson.D{}, compileFilter(nil)); diff != "" {
		t.Fatalf("empty filter mismatch (-want +got):\n%s", diff)
	}

	got := compileFilter(store.ByURL("home"))
	if diff := cmp.Diff(bson.D{{Key: "url", Value: "home"}}, got); diff != "" {
		t.Fatalf("eq filter mismatch (-want +got):\n%s", diff)
	}

	got = compileFilter(store.Match("meta.title", "^Go", true).And(store.Cond{Field: "id", Value: "x"}))
	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "meta.title", Value: bson.D{{Key: "$regex", Value: "^Go"}, {Key: "$options", Value: "i"}}}},
		bson.D{{Key: "_id", Value: "x"}},
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("compound filter mismatch (-want +got):\n%s", diff)
	}
}

func TestMetaBSONKeepsOrder(t *testing.T) {
	m := content.NewMeta()
	m.Set("title", "T")
	m.Set("kind", "note")
	d := metaToBSON(m)
	if diff := cmp.Diff(bson.D{{Key: "title", Value: "T"}, {Key: "kind", Value: "note"}}, d); diff != "" {
		t.Fatalf("bson mismatch (-want +got):\n%s", diff)
	}

	back := metaFromBSON(bson.D{{Key: "Zed", Value: int32(3)}, {Key: "a", Value: "b"}})
	if diff := cmp.Diff([]string{"zed", "a"}, back.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := back.Get("zed"); v != "3" {
		t.Fatalf("expected stringified value, got %q", v)
	}
}

func TestRecordPageMeta(t *testing.T) {
	legacy := record{URL: "a", Meta: bson.D{{Key: "title", Value: "T"}}}.document()
	if legacy.PageMeta != nil {
		t.Fatalf("expected nil page meta for records without it, got %v", legacy.PageMeta.Keys())
	}

	doc := record{
		URL:      "b",
		Meta:     bson.D{{Key: "title", Value: "T"}, {Key: "status", Value: "draft"}},
		PageMeta: bson.D{{Key: "title", Value: "T"}},
	}.document()
	if diff := cmp.Diff([]string{"title"}, doc.PageMeta.Keys()); diff != "" {
		t.Fatalf("page meta keys mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreLive(t *testing.T) {
	uri := os.Getenv("WIKI_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("WIKI_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := "mwiki_test_" + time.Now().Format("20060102150405")
	s, err := Open(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.pages.Database().Drop(context.Background())
		_ = s.Close()
	})

	meta := content.NewMeta()
	meta.Set("title", "Home Page")
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Upsert(ctx, store.Document{URL: "home", Content: "hi", Meta: meta, Author: "ann", CreatedAt: created, UpdatedAt: created}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	first, err := s.FindOne(ctx, store.ByURL("home"))
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	later := created.Add(time.Hour)
	if err := s.Upsert(ctx, store.Document{URL: "home", Content: "bye", Meta: meta, Author: "bob", UpdatedAt: later}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	second, err := s.FindOne(ctx, store.Match("meta.title", "home", true))
	if err != nil {
		t.Fatalf("regex find: %v", err)
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(created) || second.Content != "bye" {
		t.Fatalf("unexpected document after upsert: %+v", second)
	}

	if err := s.Upsert(ctx, store.Document{URL: "other", Meta: content.NewMeta(), UpdatedAt: later}); err != nil {
		t.Fatalf("upsert other: %v", err)
	}
	if _, err := s.SetURL(ctx, "home", "other"); err == nil {
		t.Fatal("expected duplicate key error")
	}
	if n, err := s.DeleteOne(ctx, store.ByURL("other")); err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	if _, err := s.FindOne(ctx, store.ByURL("other")); !errors.Is(err, store.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}
