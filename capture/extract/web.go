package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	maxWebTextChars = 40000
	// Results shorter than this are treated as a likely partial load
	// and retried before being accepted.
	thinResultChars = 100
	maxWebRetries   = 2
	webRetryDelay   = 1500 * time.Millisecond
	maxWebBodyBytes = 8 << 20
)

// strippedTags never contain readable article text.
var strippedTags = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true,
	"footer": true, "aside": true, "form": true, "iframe": true,
	"noscript": true, "template": true,
}

// junkTokens flag containers that are ads, comment threads, or share
// widgets. Class and id values are split into word tokens first, so
// "article-heading" or "shadow-box" are not caught by "ad".
var junkTokens = map[string]bool{
	"ad": true, "ads": true, "advert": true, "adverts": true,
	"advertisement": true, "advertising": true,
	"comment": true, "comments": true,
	"share": true, "sharing": true,
}

// contentSelectors are tried in priority order; the first match whose
// text clears minSelectorChars wins.
var contentSelectors = []func(*html.Node) bool{
	byTag("article"),
	byTag("main"),
	byAttr("role", "main"),
	byID("content"),
	byID("main-content"),
	byClass("post-content"),
	byClass("article-body"),
	byClass("entry-content"),
	byClass("content"),
}

const minSelectorChars = 200

// WebExtractor fetches a page and pulls out its readable text.
type WebExtractor struct {
	URL        string
	HTTPClient *http.Client

	sleep func(time.Duration)
}

func (e *WebExtractor) Source() Source { return SourceWeb }

func (e *WebExtractor) Extract(ctx context.Context) (Extraction, error) {
	sleep := e.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var (
		res     Extraction
		err     error
		retries int
	)
	for {
		res, err = e.extractOnce(ctx)
		if err != nil {
			return Extraction{}, err
		}
		if utf8.RuneCountInString(res.Text) >= thinResultChars || retries >= maxWebRetries {
			return res, nil
		}
		retries++
		sleep(webRetryDelay)
	}
}

func (e *WebExtractor) extractOnce(ctx context.Context) (Extraction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		return Extraction{}, fmt.Errorf("web extraction: %w", err)
	}
	// Several sites serve a reduced page to unknown clients.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	client := e.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("web extraction: fetch %s: %w", e.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Extraction{}, fmt.Errorf("web extraction: fetch %s: status %d", e.URL, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxWebBodyBytes))
	if err != nil {
		return Extraction{}, fmt.Errorf("web extraction: parse %s: %w", e.URL, err)
	}

	title := pageTitle(doc)
	if title == "" {
		if u, perr := url.Parse(e.URL); perr == nil {
			title = u.Host
		}
	}

	text := readableText(doc)
	if len(text) > maxWebTextChars {
		cut := maxWebTextChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return Extraction{Text: text, SuggestedTitle: title}, nil
}

// readableText picks the first content selector whose text is long
// enough to be plausibly the article, else falls back to the body.
func readableText(doc *html.Node) string {
	for _, match := range contentSelectors {
		if node := findNode(doc, match); node != nil {
			if text := collectText(node); len(text) >= minSelectorChars {
				return text
			}
		}
	}
	if body := findNode(doc, byTag("body")); body != nil {
		return collectText(body)
	}
	return collectText(doc)
}

func pageTitle(doc *html.Node) string {
	node := findNode(doc, byTag("title"))
	if node == nil {
		return ""
	}
	return collapseWhitespace(rawText(node))
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

// collectText walks the subtree, skipping chrome and junk containers,
// and returns the whitespace-collapsed text.
func collectText(n *html.Node) string {
	var b strings.Builder
	walkText(n, &b)
	return collapseWhitespace(b.String())
}

func walkText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		if strippedTags[n.Data] || isJunkContainer(n) {
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func isJunkContainer(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" && attr.Key != "id" {
			continue
		}
		for _, tok := range attrTokens(attr.Val) {
			if junkTokens[tok] {
				return true
			}
		}
	}
	return false
}

// attrTokens lowercases a class or id value and splits it on anything
// that is not a letter or digit.
func attrTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

func byAttr(key, val string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, attr := range n.Attr {
			if attr.Key == key && attr.Val == val {
				return true
			}
		}
		return false
	}
}

func byID(id string) func(*html.Node) bool { return byAttr("id", id) }

func byClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, attr := range n.Attr {
			if attr.Key != "class" {
				continue
			}
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
		return false
	}
}
