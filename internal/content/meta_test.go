package content

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMetaKeepsOrderAndLowercases(t *testing.T) {
	m := NewMeta()
	m.Set("Title", "Hello")
	m.Set("author", "ann")
	m.Set(" TAGS ", "a,b")
	m.Set("title", "Again")

	if diff := cmp.Diff([]string{"title", "author", "tags"}, m.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := m.Get("TITLE"); v != "Again" {
		t.Fatalf("expected overwritten title, got %q", v)
	}

	m.Delete("author")
	if _, ok := m.Get("author"); ok {
		t.Fatal("expected author deleted")
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", m.Len())
	}
}

func TestMetaMergeOverlays(t *testing.T) {
	base := NewMeta()
	base.Set("title", "Form Title")
	base.Set("kind", "note")

	extracted := NewMeta()
	extracted.Set("kind", "recipe")
	extracted.Set("serves", "4")

	base.Merge(extracted)
	want := map[string]string{"title": "Form Title", "kind": "recipe", "serves": "4"}
	got := map[string]string{}
	for _, k := range base.Keys() {
		got[k], _ = base.Get(k)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merged meta mismatch (-want +got):\n%s", diff)
	}
}

func TestMetaJSONPreservesOrder(t *testing.T) {
	m := NewMeta()
	m.Set("zeta", "1")
	m.Set("alpha", "2")
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"zeta":"1","alpha":"2"}` {
		t.Fatalf("unexpected json %s", data)
	}

	var back Meta
	if err := json.Unmarshal([]byte(`{"b":"x","A":"y","n":3}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a", "n"}, back.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := back.Get("n"); v != "3" {
		t.Fatalf("expected raw numeric value, got %q", v)
	}
}

func TestMetaNilSafe(t *testing.T) {
	var m *Meta
	if _, ok := m.Get("x"); ok {
		t.Fatal("nil meta should have no keys")
	}
	if m.Len() != 0 || m.Keys() != nil {
		t.Fatal("nil meta should be empty")
	}
	if m.Clone().Len() != 0 {
		t.Fatal("clone of nil meta should be empty")
	}
}
