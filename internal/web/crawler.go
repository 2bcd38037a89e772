// Package web implements the crawler and search-engine ports the RAG
// pipeline and the search_web tool handler depend on (§2, §4.8).
package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"

	"university-query-engine/internal/config"
)

// Page is the crawler's output: readable Markdown content plus the
// metadata the ingestion pipeline attaches to a Document.
type Page struct {
	URL      string
	Title    string
	Markdown string
}

// Crawler fetches a URL and extracts its readable content as Markdown.
type Crawler interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

var uaList = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:102.0) Gecko/20100101 Firefox/102.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36 Edg/115.0.0.0",
}

// httpCrawler fetches over plain HTTP and extracts the main article with
// go-readability before converting it to Markdown.
type httpCrawler struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewCrawler builds a Crawler from the web config's timeout and user agent.
func NewCrawler(cfg config.WebConfig) Crawler {
	timeout := time.Duration(cfg.CrawlTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	dialer := &net.Dialer{Timeout: 7 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   7 * time.Second,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	return &httpCrawler{
		client:    &http.Client{Transport: transport, Timeout: timeout},
		userAgent: cfg.UserAgent,
		maxBytes:  8 * 1000 * 1000,
	}
}

// Fetch retrieves rawURL and returns its readable content as Markdown,
// falling back to the full page when Readability finds no article body.
func (c *httpCrawler) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Page{}, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Page{}, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, err
	}
	ua := c.userAgent
	if ua == "" {
		ua = uaList[int(time.Now().UnixNano())%len(uaList)]
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()
	ct, cs := parseContentType(resp.Header.Get("Content-Type"))

	limited := io.LimitReader(resp.Body, c.maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return Page{}, fmt.Errorf("response exceeds max bytes (%d)", c.maxBytes)
	}

	utf8Body, err := toUTF8(body, cs)
	if err != nil {
		return Page{}, fmt.Errorf("charset decode: %w", err)
	}
	if !isHTML(ct) {
		return Page{URL: finalURL, Markdown: string(utf8Body)}, nil
	}

	rawHTML := string(utf8Body)
	articleHTML := rawHTML
	title := ""
	base, _ := url.Parse(finalURL)
	if art, rerr := readability.FromReader(strings.NewReader(rawHTML), base); rerr == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
		title = strings.TrimSpace(art.Title)
	}

	md, err := htmltomarkdown.ConvertString(articleHTML, converter.WithDomain(baseOrigin(finalURL)))
	if err != nil {
		return Page{}, fmt.Errorf("html to markdown: %w", err)
	}

	return Page{URL: finalURL, Title: title, Markdown: strings.TrimSpace(md)}, nil
}

func parseContentType(h string) (ctype, cs string) {
	if h == "" {
		return "", ""
	}
	mt, params, err := mime.ParseMediaType(h)
	if err != nil {
		return h, ""
	}
	return strings.ToLower(mt), strings.ToLower(params["charset"])
}

func isHTML(ct string) bool {
	return ct == "text/html" || ct == "application/xhtml+xml" || strings.HasSuffix(ct, "html")
}

func toUTF8(b []byte, charsetLabel string) ([]byte, error) {
	if charsetLabel == "" || strings.EqualFold(charsetLabel, "utf-8") || strings.EqualFold(charsetLabel, "utf8") {
		return b, nil
	}
	r, err := charset.NewReaderLabel(charsetLabel, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func baseOrigin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
