package commands

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/onnwee/command-tender/backend/catalog"
	"github.com/onnwee/command-tender/backend/store"
	"github.com/onnwee/command-tender/backend/telemetry"
	"github.com/onnwee/command-tender/backend/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

const testCatalog = `
- category: General
  commands:
    - {name: discord, description: Discord invite}
    - {name: song, description: Current song, aliases: [music]}
- category: Moderation
  commands:
    - {name: so, description: Shoutout, moderatorOnly: true}
- category: Music
  commands:
    - {name: song, description: Current song}
`

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return c
}

func categoryNames(v View) []string {
	out := make([]string, 0, len(v))
	for _, c := range v {
		out = append(out, c.Name)
	}
	return out
}

func TestRenderEmptyStoreIsCatalogOnly(t *testing.T) {
	m := NewMerger(newCatalog(t), store.NewMemoryStore())
	v := m.Render(context.Background())

	if got := strings.Join(categoryNames(v), ","); got != "General,Moderation,Music" {
		t.Fatalf("categories = %s", got)
	}
	if _, ok := v.Lookup(CustomCategory); ok {
		t.Error("custom category present for empty store")
	}
	general, _ := v.Lookup("General")
	want := []Entry{
		{Name: "discord", Description: "Discord invite", Aliases: []string{}},
		{Name: "song", Description: "Current song", Aliases: []string{"music"}},
	}
	if !reflect.DeepEqual(general, want) {
		t.Errorf("General = %+v, want %+v", general, want)
	}
	mod, _ := v.Lookup("Moderation")
	if len(mod) != 1 || !mod[0].ModeratorOnly {
		t.Errorf("Moderation = %+v", mod)
	}
}

func TestRenderAddThenDelete(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := NewMerger(newCatalog(t), st)

	if _, err := st.Add(ctx, "hello", "hi!"); err != nil {
		t.Fatal(err)
	}
	v := m.Render(ctx)
	if last := v[len(v)-1]; last.Name != CustomCategory {
		t.Fatalf("custom category not last: %v", categoryNames(v))
	}
	custom, _ := v.Lookup(CustomCategory)
	want := []Entry{{Name: "hello", Description: "hi!", Aliases: []string{}, ModeratorOnly: false}}
	if !reflect.DeepEqual(custom, want) {
		t.Errorf("Custom = %+v, want %+v", custom, want)
	}

	if _, err := st.Delete(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Render(ctx).Lookup(CustomCategory); ok {
		t.Error("custom category still present after deleting the last command")
	}
}

func TestRenderExactlyOneCustomCategory(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	for _, n := range []string{"b", "a", "c"} {
		_, _ = st.Add(ctx, n, "r-"+n)
	}
	v := NewMerger(newCatalog(t), st).Render(ctx)
	count := 0
	for _, c := range v {
		if c.Name == CustomCategory {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("custom categories = %d, want 1", count)
	}
	custom, _ := v.Lookup(CustomCategory)
	var got []string
	for _, e := range custom {
		got = append(got, e.Name)
	}
	if strings.Join(got, ",") != "b,a,c" {
		t.Errorf("custom order = %v", got)
	}
}

func TestRenderIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, _ = st.Add(ctx, "x", "y")
	m := NewMerger(newCatalog(t), st)

	a, err := json.Marshal(m.Render(ctx))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(m.Render(ctx))
	if string(a) != string(b) {
		t.Errorf("render not idempotent:\n%s\n%s", a, b)
	}
}

func TestRenderDegradesOnStoreFailure(t *testing.T) {
	telemetry.Init()
	before := promtest.ToFloat64(telemetry.StoreReadFailures)

	v := NewMerger(newCatalog(t), &testutil.FailingStore{}).Render(context.Background())
	if got := strings.Join(categoryNames(v), ","); got != "General,Moderation,Music" {
		t.Errorf("categories = %s, want catalog only", got)
	}
	if got := promtest.ToFloat64(telemetry.StoreReadFailures); got != before+1 {
		t.Errorf("store read failures = %v, want %v", got, before+1)
	}
}

func TestRenderDoesNotMutateCatalog(t *testing.T) {
	cat := newCatalog(t)
	v := NewMerger(cat, store.NewMemoryStore()).Render(context.Background())
	v[0].Entries[1].Aliases[0] = "mutated"
	if again := cat.Categories(); again[0].Commands[1].Aliases[0] != "music" {
		t.Error("catalog mutated through rendered view")
	}
}

func TestViewMarshalJSONKeepsOrder(t *testing.T) {
	v := View{
		{Name: "Zeta", Entries: []Entry{{Name: "z", Description: "last letter", Aliases: []string{}}}},
		{Name: "Alpha"},
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Zeta":[{"name":"z","description":"last letter","aliases":[],"moderatorOnly":false}],"Alpha":[]}`
	if string(data) != want {
		t.Errorf("json = %s\nwant %s", data, want)
	}
}
