package searchconsole

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BulletinBriefs/internal/config"
	"BulletinBriefs/internal/domain"
)

func newServer(t *testing.T, verdict string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/urlNotifications:publish", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "URL_UPDATED" || body["url"] == "" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"urlNotificationMetadata":{}}`))
	})
	mux.HandleFunc("/v1/urlInspection/index:inspect", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["siteUrl"] != "https://thebulletinbriefs.in/" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"inspectionResult":{"indexStatusResult":{"verdict":"` + verdict + `","coverageState":"x"}}}`))
	})
	return httptest.NewServer(mux)
}

func newClient(server *httptest.Server) *Client {
	return NewClient(config.SearchConsoleConfig{
		IndexingURL:   server.URL + "/v3/",
		InspectionURL: server.URL + "/v1",
		SiteURL:       "https://thebulletinbriefs.in/",
		AccessToken:   "tok",
	}, server.Client())
}

func TestRequestIndexing(t *testing.T) {
	t.Parallel()

	server := newServer(t, "PASS", http.StatusOK)
	defer server.Close()

	require.NoError(t, newClient(server).RequestIndexing(context.Background(), "https://thebulletinbriefs.in/article/a"))
}

func TestRequestIndexingQuotaError(t *testing.T) {
	t.Parallel()

	server := newServer(t, "PASS", http.StatusTooManyRequests)
	defer server.Close()

	err := newClient(server).RequestIndexing(context.Background(), "https://thebulletinbriefs.in/article/a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestInspectIndexStatus(t *testing.T) {
	t.Parallel()

	for verdict, want := range map[string]domain.GSCStatus{
		"PASS":    domain.GSCIndexed,
		"NEUTRAL": domain.GSCNotIndexed,
		"FAIL":    domain.GSCNotIndexed,
	} {
		server := newServer(t, verdict, http.StatusOK)
		got, err := newClient(server).InspectIndexStatus(context.Background(), "https://thebulletinbriefs.in/article/a")
		server.Close()

		require.NoError(t, err, verdict)
		assert.Equal(t, want, got, verdict)
	}
}
