package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *Session {
	return &Session{Token: "tok-1", UserID: "user-1", Email: "a@example.com"}
}

func TestStoreOpsFailFastWithoutSession(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()
	client := NewClient(srv.URL)
	ctx := context.Background()

	_, err := client.CreateDocument(ctx, nil, CreateDocumentInput{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = client.ListDocuments(ctx, &Session{})
	assert.ErrorIs(t, err, ErrNotSignedIn)

	err = client.DeleteDocument(ctx, &Session{Token: "   "}, "doc-1")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = client.Simplify(ctx, nil, "text", nil)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	assert.Zero(t, hits, "no request may be issued without a session")
}

func TestLoginReturnsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		w.Write([]byte(`{"token":"tok-9","user":{"id":"u-9","name":"Ada","email":"ada@example.com"}}`))
	}))
	defer srv.Close()

	session, err := NewClient(srv.URL).Login(context.Background(), "ada@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-9", session.Token)
	assert.Equal(t, "u-9", session.UserID)
	assert.True(t, session.Valid())
}

func TestCreateDocumentSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"doc-1","title":"T","content":"C","type":"pdf","sourceTag":"upload"}`))
	}))
	defer srv.Close()

	doc, err := NewClient(srv.URL).CreateDocument(context.Background(), testSession(), CreateDocumentInput{
		Title: "T", Content: "C", Type: "pdf", SourceTag: "upload",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "doc-1", doc.ID)
}

func TestErrorBodyVariantsSurfacedVerbatim(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"nested error object", `{"error":{"code":"not_found","message":"document not found"}}`, "document not found"},
		{"flat message", `{"message":"owner id required"}`, "owner id required"},
		{"string error", `{"error":"email already registered"}`, "email already registered"},
		{"unparseable body", `<html>gateway error</html>`, http.StatusText(http.StatusNotFound)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).DeleteDocument(context.Background(), testSession(), "doc-x")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusNotFound, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
		})
	}
}

func TestSimplifyFailureModes(t *testing.T) {
	t.Run("service failed carries status and detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":{"code":"upstream_error","message":"simplification service failed (status 503): overloaded"}}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Simplify(context.Background(), testSession(), "text", nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadGateway, apiErr.Status)
		assert.Contains(t, apiErr.Message, "503")
	})

	t.Run("no usable payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"simplifiedText":"   "}`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Simplify(context.Background(), testSession(), "text", nil)
		assert.ErrorIs(t, err, ErrNoSimplifiedText)
	})

	t.Run("unreachable is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := NewClient(srv.URL).Simplify(context.Background(), testSession(), "text", nil)
		require.Error(t, err)
		var apiErr *APIError
		assert.False(t, errors.As(err, &apiErr), "transport failure must not be an APIError")
		assert.NotErrorIs(t, err, ErrNoSimplifiedText)
	})
}

func TestListDocumentsDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"documents":[{"id":"d2","title":"newest"},{"id":"d1","title":"oldest"}]}`))
	}))
	defer srv.Close()

	docs, err := NewClient(srv.URL).ListDocuments(context.Background(), testSession())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "newest", docs[0].Title)
}

func TestSessionPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")

	loaded, err := LoadSession(path)
	require.NoError(t, err)
	assert.Nil(t, loaded, "missing file means signed out")

	require.NoError(t, SaveSession(path, testSession()))

	loaded, err = LoadSession(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok-1", loaded.Token)

	require.NoError(t, DestroySession(path))
	loaded, err = LoadSession(path)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Destroying twice stays quiet.
	assert.NoError(t, DestroySession(path))
}
