package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const keywordSchema = `{
	"type": "object",
	"properties": {
		"keyword": {
			"type": "string",
			"description": "The keyword to search for"
		}
	}
}`

const (
	scrapeTimeout   = 5 * time.Second
	scrapeUserAgent = "Mozilla/5.0"
	maxScrapeHits   = 20
)

// scrapeTool fetches a search-results page and returns the text of the
// anchors that match the site-specific filter, one per line.
type scrapeTool struct {
	name        string
	description string
	buildURL    func(keyword string) string
	match       func(n *html.Node) bool
	client      *http.Client
}

func (t *scrapeTool) Name() string                { return t.name }
func (t *scrapeTool) Description() string         { return t.description }
func (t *scrapeTool) Parameters() json.RawMessage { return json.RawMessage(keywordSchema) }

func (t *scrapeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	keyword, _ := args["keyword"].(string)
	if keyword == "" {
		return "Search failed: keyword is required", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.buildURL(keyword), nil)
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err), nil
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("scrape request failed", "tool", t.name, "error", err)
		return fmt.Sprintf("Search failed: %v", err), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Search failed: HTTP %d", resp.StatusCode), nil
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err), nil
	}

	questions := collectAnchorText(doc, t.match, maxScrapeHits)
	slog.Info("scrape completed", "tool", t.name, "keyword", keyword, "hits", len(questions))
	if len(questions) == 0 {
		return "No questions found", nil
	}
	return strings.Join(questions, "\n"), nil
}

// collectAnchorText walks the parsed document and gathers the trimmed
// text of every <a> node accepted by match, up to limit entries.
func collectAnchorText(root *html.Node, match func(*html.Node) bool, limit int) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" && match(n) {
			if text := strings.TrimSpace(nodeText(n)); text != "" {
				out = append(out, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func hasClass(n *html.Node, class string) bool {
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

// NewInterviewSearchTool scrapes interview questions from mianshiya.com.
// An empty baseURL uses the public site.
func NewInterviewSearchTool(baseURL string) Tool {
	if baseURL == "" {
		baseURL = "https://www.mianshiya.com"
	}
	return &scrapeTool{
		name: "interview_question_search",
		description: "Retrieves relevant interview questions from mianshiya.com based on a keyword. " +
			"Use this tool when the user asks for interview questions about specific technologies, " +
			"programming concepts, or job-related topics. The input should be a clear search term.",
		buildURL: func(keyword string) string {
			return baseURL + "/search/all?searchText=" + url.QueryEscape(keyword)
		},
		// Question titles are the anchors inside result-table cells.
		match: func(n *html.Node) bool {
			return n.Parent != nil && hasClass(n.Parent, "ant-table-cell")
		},
		client: &http.Client{Timeout: scrapeTimeout},
	}
}

// NewCodeSearchTool scrapes coding problems from leetcode.cn. An empty
// baseURL uses the public site.
func NewCodeSearchTool(baseURL string) Tool {
	if baseURL == "" {
		baseURL = "https://leetcode.cn"
	}
	return &scrapeTool{
		name: "code_question_search",
		description: "Find relevant coding problems based on a keyword. " +
			"Use this tool when the user asks for coding exercises or algorithm problems. " +
			"The input should be a clear search keyword.",
		buildURL: func(keyword string) string {
			return baseURL + "/search/?q=" + url.QueryEscape(keyword)
		},
		match:  func(n *html.Node) bool { return true },
		client: &http.Client{Timeout: scrapeTimeout},
	}
}
