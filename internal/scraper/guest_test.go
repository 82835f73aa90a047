package scraper

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brotliBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestGuestScrapeDecodesBrotli(t *testing.T) {
	body := brotliBytes(t, guestPageHTML)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	g := NewGuest(5 * time.Second)
	g.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	res, err := g.scrapeURL(context.Background(), srv.URL+"/company/acme-robotics/", "acme-robotics",
		Options{MaxPosts: 15, MaxEmployees: 20})
	require.NoError(t, err)

	assert.Equal(t, "guest", res.Source)
	assert.Equal(t, "Acme Robotics", res.Page.Name)
	assert.Len(t, res.Posts, 2)
	assert.Len(t, res.Employees, 2)
}

func TestGuestScrapeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewGuest(time.Second).scrapeURL(context.Background(), srv.URL+"/company/missing/", "missing", Options{})
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestGuestScrapeAuthwall(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/company/acme/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/authwall?trk=guest", http.StatusFound)
	})
	mux.HandleFunc("/authwall", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Join LinkedIn</h1></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := NewGuest(time.Second).scrapeURL(context.Background(), srv.URL+"/company/acme/", "acme", Options{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPageNotFound)
}

func TestDecodeBodyCharset(t *testing.T) {
	latin1 := []byte("<html><body>Caf\xe9</body></html>")
	out, err := decodeBody(latin1, "", "text/html; charset=iso-8859-1")
	require.NoError(t, err)
	assert.Contains(t, string(out), "Café")
}
