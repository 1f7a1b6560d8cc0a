package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fivetwenty-io/cmapi/internal/auth"
	"github.com/fivetwenty-io/cmapi/pkg/cmapi"
	"github.com/stretchr/testify/require"
)

const (
	testOrgID  = "ORG@AdobeOrg"
	testAPIKey = "api-key"
	testToken  = "test-token"
)

// newTestClient returns a client talking to a server running handler.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewWithTokenManager(&cmapi.Config{
		BaseURL: server.URL,
		OrgID:   testOrgID,
		APIKey:  testAPIKey,
	}, auth.NewStaticTokenManager(testToken))
	require.NoError(t, err)

	return client
}

// writeJSON writes value with the given status.
func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// collection builds a HAL collection body with items under _embedded.<key>.
func collection(key string, items interface{}) map[string]interface{} {
	return map[string]interface{}{
		"_embedded": map[string]interface{}{key: items},
		"_links":    map[string]interface{}{},
	}
}

// pagedCollection builds a collection body carrying a _page descriptor.
func pagedCollection(key string, items interface{}, total, limit int, next *int) map[string]interface{} {
	body := collection(key, items)
	body["_totalNumberOfItems"] = total

	page := map[string]interface{}{"limit": limit}
	if next != nil {
		page["next"] = *next
	}

	body["_page"] = page

	return body
}

func intPtr(v int) *int {
	return &v
}
