package crawler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mpuig/rentagpt/internal/models"
	"golang.org/x/time/rate"
)

// boilerplateText is the PDF-export dialog the AEAT manual embeds in
// every page. It carries no information and pollutes retrieval.
const boilerplateText = `Generar PDF

Cerrar

La generación del PDF puede tardar varios minutos dependiendo de la cantidad de información.

Seleccione la información que desee incluir en el PDF:

Página actual

Apartado actual y subapartados

Todo el documento

Puede cancelar la generación del PDF en cualquier momento.`

type CrawlerConfig struct {
	StartURL        string
	URLPrefix       string
	RateLimit       float64 // requests per second
	Timeout         time.Duration
	IgnoreExtension string
	DenySuffixes    []string
	OnProgress      func(url string)
}

type Crawler struct {
	config  CrawlerConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config CrawlerConfig) (*Crawler, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.URLPrefix == "" {
		config.URLPrefix = config.StartURL
	}

	if _, err := url.Parse(config.StartURL); err != nil {
		return nil, err
	}

	return &Crawler{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// CollectLinks fetches the start page, extracts every anchor under the
// configured URL prefix and deduplicates the result.
func (c *Crawler) CollectLinks(ctx context.Context) ([]string, error) {
	doc, err := c.fetch(ctx, c.config.StartURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(c.config.StartURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, exists := selection.Attr("href")
		if !exists {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		absolute := base.ResolveReference(parsed).String()

		if !strings.HasPrefix(absolute, c.config.URLPrefix) {
			return
		}
		if !seen[absolute] {
			seen[absolute] = true
			links = append(links, absolute)
		}
	})

	return DedupLinks(links, DedupOptions{
		IgnoreExtension: c.config.IgnoreExtension,
		DenySuffixes:    c.config.DenySuffixes,
	}), nil
}

// FetchDocuments downloads every link at the configured rate. A failed
// fetch is logged and skipped; it never aborts the batch.
func (c *Crawler) FetchDocuments(ctx context.Context, links []string) ([]models.Document, error) {
	var documents []models.Document

	for _, link := range links {
		if err := c.limiter.Wait(ctx); err != nil {
			return documents, err
		}

		document, err := c.fetchDocument(ctx, link)
		if err != nil {
			log.Printf("skipping %s: %v", link, err)
			continue
		}

		documents = append(documents, document)
		if c.config.OnProgress != nil {
			c.config.OnProgress(link)
		}
	}

	return documents, nil
}

func (c *Crawler) fetchDocument(ctx context.Context, link string) (models.Document, error) {
	doc, err := c.fetch(ctx, link)
	if err != nil {
		return models.Document{}, err
	}

	return models.Document{
		SourceURL: link,
		Title:     strings.TrimSpace(doc.Find("title").Text()),
		Text:      c.extractMainContent(doc),
	}, nil
}

func (c *Crawler) fetch(ctx context.Context, link string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, link)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func (c *Crawler) extractMainContent(doc *goquery.Document) string {
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	if content == "" {
		content = doc.Find("body").Text()
	}

	return c.cleanContent(content)
}

func (c *Crawler) cleanContent(content string) string {
	content = strings.ReplaceAll(content, boilerplateText, "")
	content = strings.Join(strings.Fields(content), " ")
	return strings.TrimSpace(content)
}
