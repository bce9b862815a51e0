package drive_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/sitepanel/internal/adapter/driven/drive"
)

type fileJSON struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	MimeType      string            `json:"mimeType,omitempty"`
	WebViewLink   string            `json:"webViewLink,omitempty"`
	ModifiedTime  string            `json:"modifiedTime,omitempty"`
	DriveID       string            `json:"driveId,omitempty"`
	Parents       []string          `json:"parents,omitempty"`
	AppProperties map[string]string `json:"appProperties,omitempty"`
}

type listJSON struct {
	NextPageToken string     `json:"nextPageToken,omitempty"`
	Files         []fileJSON `json:"files"`
}

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler, opts drive.Options) *drive.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := drive.NewClientWithHTTPClient(context.Background(), server.Client(), server.URL+"/drive/v3/", opts)
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_SearchPaginatesAndDedupes(t *testing.T) {
	var mu sync.Mutex
	var queries []string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()

		switch {
		case strings.Contains(q, "'Acme'") && r.URL.Query().Get("pageToken") == "":
			writeJSON(t, w, listJSON{
				NextPageToken: "p2",
				Files: []fileJSON{{
					ID:           "f1",
					Name:         "Acme Corp",
					WebViewLink:  "https://drive.google.com/drive/folders/f1",
					ModifiedTime: "2026-01-05T10:00:00Z",
				}},
			})
		case strings.Contains(q, "'Acme'"):
			writeJSON(t, w, listJSON{Files: []fileJSON{{ID: "f2", Name: "Acme Corporation Backups", DriveID: "shared-1"}}})
		case strings.Contains(q, "'North'"):
			writeJSON(t, w, listJSON{Files: []fileJSON{{ID: "f1", Name: "Acme Corp"}, {ID: "f3", Name: "North Campus"}}})
		default:
			writeJSON(t, w, listJSON{Files: []fileJSON{}})
		}
	})

	client := newTestClient(t, mux, drive.Options{})

	got, err := client.Search(context.Background(), "Acme Corp", []string{"North Campus", "acme"})

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, "https://drive.google.com/drive/folders/f1", got[0].URL)
	require.NotNil(t, got[0].LastModified)
	assert.Equal(t, 2026, got[0].LastModified.Year())
	assert.Equal(t, "my_drive", got[0].ParentType)
	assert.Equal(t, "f2", got[1].ID)
	assert.Equal(t, "shared_drive", got[1].ParentType)
	assert.Equal(t, "https://drive.google.com/drive/folders/f2", got[1].URL)
	assert.Nil(t, got[1].LastModified)
	assert.Equal(t, "f3", got[2].ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, queries, 3, "duplicate alias term must not be searched twice")
	assert.Contains(t, queries[0], "mimeType = 'application/vnd.google-apps.folder'")
	assert.Contains(t, queries[0], "trashed = false")
}

func TestClient_SearchResolvesParentPath(t *testing.T) {
	var mu sync.Mutex
	parentGets := make(map[string]int)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("fields"), "parents")
		writeJSON(t, w, listJSON{Files: []fileJSON{
			{ID: "f1", Name: "Acme Corp", Parents: []string{"root-1"}},
			{ID: "f2", Name: "Acme Archive", Parents: []string{"root-1"}},
			{ID: "f3", Name: "Acme Old", Parents: []string{"gone"}},
			{ID: "f4", Name: "Acme Orphan"},
		}})
	})
	mux.HandleFunc("GET /drive/v3/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		mu.Lock()
		parentGets[id]++
		mu.Unlock()
		if id != "root-1" {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(t, w, fileJSON{ID: "root-1", Name: "Customers"})
	})

	client := newTestClient(t, mux, drive.Options{})

	got, err := client.Search(context.Background(), "Acme", nil)

	require.NoError(t, err)
	require.Len(t, got, 4)

	tests := []struct {
		id   string
		path string
	}{
		{"f1", "Customers/Acme Corp"},
		{"f2", "Customers/Acme Archive"},
		{"f3", "Acme Old"},
		{"f4", "Acme Orphan"},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.id, got[i].ID)
		assert.Equal(t, tt.path, got[i].Path, tt.id)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"root-1": 1, "gone": 1}, parentGets, "each parent is looked up once")
}

func TestClient_SearchEscapesQuotes(t *testing.T) {
	var query string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		writeJSON(t, w, listJSON{Files: []fileJSON{}})
	})

	client := newTestClient(t, mux, drive.Options{})

	got, err := client.Search(context.Background(), "O'Brien Mechanical", nil)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, query, `name contains 'O\'Brien'`)
}

func TestClient_SearchError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/v3/files", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
	})

	client := newTestClient(t, mux, drive.Options{})

	_, err := client.Search(context.Background(), "Acme", nil)
	assert.Error(t, err)
}

func TestClient_CreateStructured(t *testing.T) {
	var mu sync.Mutex
	var created []fileJSON

	mux := http.NewServeMux()
	mux.HandleFunc("POST /drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		var f fileJSON
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f))

		mu.Lock()
		created = append(created, f)
		id := "id-" + strings.ReplaceAll(f.Name, " ", "-")
		mu.Unlock()

		writeJSON(t, w, fileJSON{ID: id, Name: f.Name, WebViewLink: "https://drive.example/" + id})
	})

	client := newTestClient(t, mux, drive.Options{
		RootFolderID: "root-1",
		Subfolders:   []string{"Backups", "Site Photos"},
	})

	got, err := client.CreateStructured(context.Background(), "Acme Corp", map[string]string{"customer_id": "cust-1"})

	require.NoError(t, err)
	assert.Equal(t, "id-Acme-Corp", got.MainFolderID)
	assert.Equal(t, "https://drive.example/id-Acme-Corp", got.MainFolderURL)
	assert.Equal(t, map[string]string{"Backups": "id-Backups", "Site Photos": "id-Site-Photos"}, got.Subfolders)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, created, 3)
	assert.Equal(t, []string{"root-1"}, created[0].Parents)
	assert.Equal(t, "application/vnd.google-apps.folder", created[0].MimeType)
	assert.Equal(t, map[string]string{"customer_id": "cust-1"}, created[0].AppProperties)
	assert.Equal(t, []string{"id-Acme-Corp"}, created[1].Parents)
}

func TestClient_CreateStructuredFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /drive/v3/files", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"insufficient permissions"}}`, http.StatusForbidden)
	})

	client := newTestClient(t, mux, drive.Options{})

	_, err := client.CreateStructured(context.Background(), "Acme", nil)
	assert.Error(t, err)
}

func TestNewClient_BadCredentials(t *testing.T) {
	_, err := drive.NewClient(context.Background(), "/nonexistent/credentials.json", drive.Options{})
	assert.Error(t, err)
}
