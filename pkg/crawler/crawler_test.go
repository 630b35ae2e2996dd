package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManualServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/manual/100.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Manual</title></head><body>
			<a href="/manual/100/101.html">Capítulo 1</a>
			<a href="/manual/100/102.html">Capítulo 2</a>
			<a href="/manual/100.html">Inicio</a>
			<a href="/otra/cosa.html">Fuera</a>
			<a href="https://elsewhere.test/page.html">Externo</a>
		</body></html>`)
	})
	mux.HandleFunc("/manual/100/101.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Capítulo 1</title></head>
			<body><main>La campaña de la renta comienza en abril.</main></body></html>`)
	})
	mux.HandleFunc("/manual/100/102.html", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCollectLinks(t *testing.T) {
	server := newManualServer(t)

	c, err := NewWithConfig(CrawlerConfig{
		StartURL:        server.URL + "/manual/100.html",
		URLPrefix:       server.URL + "/manual",
		RateLimit:       100,
		IgnoreExtension: ".html",
	})
	require.NoError(t, err)

	links, err := c.CollectLinks(context.Background())
	require.NoError(t, err)

	// 100.html is a prefix of the chapter pages and must be dropped.
	assert.ElementsMatch(t, []string{
		server.URL + "/manual/100/101.html",
		server.URL + "/manual/100/102.html",
	}, links)
}

func TestFetchDocumentsSkipsFailures(t *testing.T) {
	server := newManualServer(t)

	c, err := NewWithConfig(CrawlerConfig{
		StartURL:  server.URL + "/manual/100.html",
		RateLimit: 100,
	})
	require.NoError(t, err)

	var visited []string
	c.config.OnProgress = func(url string) { visited = append(visited, url) }

	docs, err := c.FetchDocuments(context.Background(), []string{
		server.URL + "/manual/100/101.html",
		server.URL + "/manual/100/102.html", // 404, skipped
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, server.URL+"/manual/100/101.html", docs[0].SourceURL)
	assert.Equal(t, "Capítulo 1", docs[0].Title)
	assert.Contains(t, docs[0].Text, "campaña de la renta")
	assert.Len(t, visited, 1)
}

func TestCleanContentStripsBoilerplate(t *testing.T) {
	c, err := NewWithConfig(CrawlerConfig{StartURL: "https://example.com"})
	require.NoError(t, err)

	cleaned := c.cleanContent("Texto útil. " + boilerplateText + " Más texto.")
	assert.Equal(t, "Texto útil. Más texto.", cleaned)
}
