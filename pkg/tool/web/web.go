package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"
	"github.com/m-mizutani/fennec/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const (
	toolName = "web_search"

	defaultEndpoint = "https://html.duckduckgo.com/html/"
	maxResults      = 5
)

type input struct {
	Query string `json:"query"`
}

// Result is a single web search result
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Search queries a web search engine and extracts result snippets
type Search struct {
	endpoint string
	client   *http.Client
}

type Option func(*Search)

// WithEndpoint overrides the search endpoint, mainly for tests
func WithEndpoint(endpoint string) Option {
	return func(s *Search) {
		s.endpoint = endpoint
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Search) {
		s.client = client
	}
}

func New(opts ...Option) *Search {
	s := &Search{
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Search) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        toolName,
				Description: "Search the web for current or general knowledge information that is not in the knowledge base.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "Web search query",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
}

func (s *Search) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	raw, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal arguments")
	}

	var in input
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, goerr.Wrap(err, "failed to parse arguments")
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, goerr.New("query is empty")
	}

	results, err := s.Query(ctx, in.Query)
	if err != nil {
		return nil, err
	}

	return tool.Response(toolName, format(in.Query, results)), nil
}

func (s *Search) Prompt(ctx context.Context) string {
	return ""
}

func (s *Search) Flags() []cli.Flag {
	return nil
}

// Query fetches search results with one retry on transient failure
func (s *Search) Query(ctx context.Context, query string) ([]*Result, error) {
	op := func() ([]*Result, error) {
		results, err := s.fetch(ctx, query)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return results, err
	}

	results, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(2),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query search engine", goerr.V("query", query))
	}
	return results, nil
}

func (s *Search) fetch(ctx context.Context, query string) ([]*Result, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected response status", goerr.V("status", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse response")
	}

	var results []*Result
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())

		if title == "" {
			return true
		}
		results = append(results, &Result{
			Title:   title,
			URL:     href,
			Snippet: snippet,
		})
		return len(results) < maxResults
	})

	return results, nil
}

func format(query string, results []*Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No web results found for: %s", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Web search results for: %s\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Title)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
		if r.URL != "" {
			fmt.Fprintf(&sb, "   %s\n", r.URL)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
