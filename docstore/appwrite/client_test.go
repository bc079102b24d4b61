package appwrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelbox/docstore"
)

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name       string
		projectID  string
		databaseID string
		wantErr    bool
		errMsg     string
	}{
		{name: "valid config", projectID: "proj", databaseID: "db"},
		{name: "missing project", databaseID: "db", wantErr: true, errMsg: "project id is required"},
		{name: "missing database", projectID: "proj", wantErr: true, errMsg: "database id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient("", tt.projectID, tt.databaseID, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, docstore.ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultEndpoint, client.endpoint)
		})
	}
}

func TestClientList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/databases/db/collections/metrics/documents", r.URL.Path)
		assert.Equal(t, "proj", r.Header.Get("X-Appwrite-Project"))
		assert.Equal(t, "secret", r.Header.Get("X-Appwrite-Key"))
		assert.Equal(t, []string{
			`{"method":"equal","attribute":"searchTerm","values":["dune"]}`,
			`{"method":"limit","values":[1]}`,
		}, r.URL.Query()["queries[]"])

		json.NewEncoder(w).Encode(map[string]any{
			"total": 1,
			"documents": []map[string]any{
				{"$id": "doc-1", "searchTerm": "dune", "count": 2},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "proj", "db", zerolog.Nop(), WithAPIKey("secret"))
	require.NoError(t, err)

	docs, err := client.List(context.Background(), "metrics", docstore.Equal("searchTerm", "dune"), docstore.Limit(1))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID())
	assert.Equal(t, int64(2), docs[0].Int("count"))
}

func TestClientListRejectsInvalidQuery(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", "proj", "db", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.List(context.Background(), "metrics", docstore.Equal("searchTerm"))
	assert.ErrorIs(t, err, docstore.ErrInvalidQuery)
}

func TestClientWrites(t *testing.T) {
	var created createRequest
	var updated updateRequest
	var deleted string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user-jwt", r.Header.Get("X-Appwrite-JWT"))
		assert.Empty(t, r.Header.Get("X-Appwrite-Key"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/databases/db/collections/saved/documents":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusCreated)
			doc := map[string]any{"$id": created.DocumentID, "$createdAt": "2025-06-01T10:00:00.000+00:00"}
			for k, v := range created.Data {
				doc[k] = v
			}
			json.NewEncoder(w).Encode(doc)
		case r.Method == http.MethodPatch && r.URL.Path == "/databases/db/collections/saved/documents/doc-1":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
			json.NewEncoder(w).Encode(map[string]any{"$id": "doc-1", "count": updated.Data["count"]})
		case r.Method == http.MethodDelete && r.URL.Path == "/databases/db/collections/saved/documents/doc-1":
			deleted = "doc-1"
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{
				"message": "Document with the requested ID could not be found.",
				"code":    404,
				"type":    "document_not_found",
			})
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "proj", "db", zerolog.Nop(), WithAPIKey("secret"), WithJWT("user-jwt"))
	require.NoError(t, err)

	ctx := context.Background()

	doc, err := client.Create(ctx, "saved", map[string]any{"movie_id": 438631, "title": "Dune"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.DocumentID)
	assert.Equal(t, created.DocumentID, doc.ID())
	assert.Equal(t, "Dune", doc.String("title"))
	assert.False(t, doc.CreatedAt().IsZero())

	doc, err = client.Update(ctx, "saved", "doc-1", map[string]any{"count": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.Int("count"))
	assert.Equal(t, float64(3), updated.Data["count"])

	require.NoError(t, client.Delete(ctx, "saved", "doc-1"))
	assert.Equal(t, "doc-1", deleted)

	err = client.Delete(ctx, "saved", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "document_not_found", apiErr.Type)
	assert.Equal(t, "appwrite API error: status 404 (document_not_found): Document with the requested ID could not be found.", apiErr.Error())
}

func TestAPIError(t *testing.T) {
	err := newAPIError(http.StatusUnauthorized, []byte("not json"))
	assert.True(t, err.IsUnauthorized())
	assert.False(t, err.IsNotFound())
	assert.Equal(t, "appwrite API error: status 401: Unauthorized", err.Error())
}

func TestClientListAllPages(t *testing.T) {
	const total = 30
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, limit := 0, 25
		for _, raw := range r.URL.Query()["queries[]"] {
			var q docstore.Query
			assert.NoError(t, json.Unmarshal([]byte(raw), &q))
			switch q.Method {
			case docstore.MethodOffset:
				offset, _ = q.OffsetValue()
			case docstore.MethodLimit:
				limit, _ = q.LimitValue()
			}
		}
		// Appwrite never serves more than 25 documents here
		limit = min(limit, 25)

		docs := []map[string]any{}
		for i := offset; i < total && len(docs) < limit; i++ {
			docs = append(docs, map[string]any{"$id": fmt.Sprintf("doc-%d", i), "movie_id": i})
		}
		json.NewEncoder(w).Encode(map[string]any{"total": total, "documents": docs})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "proj", "db", zerolog.Nop())
	require.NoError(t, err)

	docs, err := docstore.ListAll(context.Background(), client, "saved", docstore.DefaultPageSize,
		docstore.OrderDesc(docstore.FieldCreatedAt))
	require.NoError(t, err)
	assert.Len(t, docs, total)
	assert.Equal(t, "doc-29", docs[total-1].ID())
	assert.Equal(t, 3, requests)
}
