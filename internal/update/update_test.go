package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		current string
		want    string
	}{
		{"newer", http.StatusOK, `{"tag_name":"v1.2.0"}`, "1.1.0", "1.2.0"},
		{"same", http.StatusOK, `{"tag_name":"v1.1.0"}`, "v1.1.0", ""},
		{"empty tag", http.StatusOK, `{}`, "1.1.0", ""},
		{"bad json", http.StatusOK, `{`, "1.1.0", ""},
		{"server error", http.StatusInternalServerError, ``, "1.1.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res := Check(context.Background(), srv.Client(), srv.URL, tt.current)
			if tt.want == "" {
				assert.Nil(t, res)
				return
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.want, res.LatestVersion)
		})
	}
}

func TestCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Nil(t, Check(context.Background(), http.DefaultClient, url, "1.0.0"))
}
