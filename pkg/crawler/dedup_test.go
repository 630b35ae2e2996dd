package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupLinks(t *testing.T) {
	links := []string{
		"https://example.com/manual/100.html",
		"https://example.com/manual/100/101.html",
		"https://example.com/manual/100/101/102.html",
		"https://example.com/manual/200.html",
	}

	kept := DedupLinks(links, DedupOptions{IgnoreExtension: ".html"})

	assert.ElementsMatch(t, []string{
		"https://example.com/manual/100/101/102.html",
		"https://example.com/manual/200.html",
	}, kept)
}

func TestDedupLinksIdempotent(t *testing.T) {
	opts := DedupOptions{
		IgnoreExtension: ".html",
		DenySuffixes:    []string{"indice.html"},
	}
	links := []string{
		"https://example.com/a.html",
		"https://example.com/a/b.html",
		"https://example.com/a/b.html",
		"https://example.com/c/indice.html",
		"https://example.com/d.html",
	}

	once := DedupLinks(links, opts)
	twice := DedupLinks(once, opts)

	assert.ElementsMatch(t, once, twice)
	for _, link := range once {
		assert.Contains(t, links, link)
	}
}

func TestDedupLinksDenySuffix(t *testing.T) {
	links := []string{
		"https://example.com/manual/indice.html",
		"https://example.com/manual/310.html",
	}

	kept := DedupLinks(links, DedupOptions{DenySuffixes: []string{"indice.html"}})

	assert.Equal(t, []string{"https://example.com/manual/310.html"}, kept)
}

func TestDedupLinksEmpty(t *testing.T) {
	assert.Empty(t, DedupLinks(nil, DedupOptions{}))
}
