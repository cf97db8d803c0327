package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gitsu-io/gitsu/pkg/cache"
	"github.com/gitsu-io/gitsu/pkg/errors"
)

func newTestServer(t *testing.T) (*httptest.Server, *FileStore) {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewServer(store, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRegisterAndLookup(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL, ClientOptions{})
	ctx := context.Background()

	if err := client.Register(ctx, "jquery", "https://github.com/jquery/jquery.git"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	url, err := client.Lookup(ctx, "jquery")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if url != "https://github.com/jquery/jquery.git" {
		t.Errorf("Lookup = %q", url)
	}
}

func TestLookupNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL, ClientOptions{})

	_, err := client.Lookup(context.Background(), "missing")
	if !errors.Is(err, errors.ENOTFOUND) {
		t.Fatalf("Lookup err = %v, want ENOTFOUND", err)
	}
}

func TestRegisterConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL, ClientOptions{})
	ctx := context.Background()

	if err := client.Register(ctx, "pkg", "https://a.example/pkg.git"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Re-registering the same mapping is idempotent.
	if err := client.Register(ctx, "pkg", "https://a.example/pkg.git"); err != nil {
		t.Fatalf("idempotent Register: %v", err)
	}
	// A different URL for a taken name is rejected.
	if err := client.Register(ctx, "pkg", "https://b.example/pkg.git"); err == nil {
		t.Fatal("Register with conflicting URL succeeded")
	}
}

func TestSearch(t *testing.T) {
	srv, store := newTestServer(t)
	client := NewClient(srv.URL, ClientOptions{})
	ctx := context.Background()

	for _, e := range []Entry{
		{Name: "jquery", URL: "https://a.example/jquery.git"},
		{Name: "jquery-ui", URL: "https://a.example/jquery-ui.git"},
		{Name: "backbone", URL: "https://a.example/backbone.git"},
	} {
		if err := store.Put(e); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := client.Search(ctx, "jquery")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Search returned %d entries, want 2", len(entries))
	}
	if entries[0].Name != "jquery" || entries[1].Name != "jquery-ui" {
		t.Errorf("Search order = %v", entries)
	}
}

func TestLookupUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"name":"pkg","url":"https://a.example/pkg.git"}`))
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(srv.URL, ClientOptions{Cache: fc})
	ctx := context.Background()

	for range 3 {
		if _, err := client.Lookup(ctx, "pkg"); err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("server saw %d calls, want 1 (cached)", calls)
	}
}

func TestFileStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(Entry{Name: "pkg", URL: "https://a.example/pkg.git"}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entry, ok := reopened.Get("pkg")
	if !ok || entry.URL != "https://a.example/pkg.git" {
		t.Errorf("Get after reopen = (%v, %v)", entry, ok)
	}
}
