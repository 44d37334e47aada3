package collect

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the NCBI E-utilities endpoint.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultMaxResults bounds a single search.
	DefaultMaxResults = 50

	// fetchRetries bounds E-utilities request attempts. NCBI rate-limits
	// aggressively, so failed requests back off before retrying.
	fetchRetries = 3
	retryBackoff = 2 * time.Second
)

// PubMedClient is a minimal client for the PubMed E-utilities API.
type PubMedClient struct {
	baseURL    string
	email      string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// PubMedOption configures a PubMedClient.
type PubMedOption func(*PubMedClient)

// WithPubMedBaseURL overrides the E-utilities endpoint. Used by tests.
func WithPubMedBaseURL(u string) PubMedOption {
	return func(c *PubMedClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithPubMedIdentity sets the email and API key NCBI asks heavy users to
// send. Both are optional.
func WithPubMedIdentity(email, apiKey string) PubMedOption {
	return func(c *PubMedClient) {
		c.email = email
		c.apiKey = apiKey
	}
}

// WithPubMedHTTPClient overrides the HTTP client.
func WithPubMedHTTPClient(hc *http.Client) PubMedOption {
	return func(c *PubMedClient) { c.httpClient = hc }
}

func NewPubMedClient(logger *zap.Logger, opts ...PubMedOption) *PubMedClient {
	c := &PubMedClient{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// esearchResponse is the JSON shape returned by esearch.fcgi.
type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// pubmedArticleSet is the XML shape returned by efetch.fcgi. Only the
// abstract fragments are mapped.
type pubmedArticleSet struct {
	XMLName  xml.Name `xml:"PubmedArticleSet"`
	Articles []struct {
		Citation struct {
			Article struct {
				Title    string `xml:"ArticleTitle"`
				Abstract struct {
					Texts []string `xml:"AbstractText"`
				} `xml:"Abstract"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
	} `xml:"PubmedArticle"`
}

// Abstract is a fetched PubMed abstract.
type Abstract struct {
	PMID  string
	Title string
	Text  string
	URL   string
}

// Search returns the PMIDs matching a query, at most maxResults of them.
func (c *PubMedClient) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "json")
	c.identify(params)

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("searching pubmed for %q: %w", query, err)
	}

	var res esearchResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decoding pubmed search response: %w", err)
	}

	c.logger.Info("pubmed search",
		zap.String("query", query),
		zap.Int("results", len(res.ESearchResult.IDList)),
	)

	return res.ESearchResult.IDList, nil
}

// FetchAbstract retrieves the abstract of a single article. Articles without
// an abstract return (nil, nil).
func (c *PubMedClient) FetchAbstract(ctx context.Context, pmid string) (*Abstract, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", pmid)
	params.Set("retmode", "xml")
	c.identify(params)

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("fetching pubmed abstract %s: %w", pmid, err)
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decoding pubmed abstract %s: %w", pmid, err)
	}

	if len(set.Articles) == 0 {
		return nil, nil
	}

	article := set.Articles[0].Citation.Article
	text := CleanText(strings.Join(article.Abstract.Texts, " "))
	if text == "" {
		c.logger.Warn("no abstract for pmid", zap.String("pmid", pmid))
		return nil, nil
	}

	title := CleanText(article.Title)
	if title == "" {
		title = "Pubmed_" + pmid
	}

	return &Abstract{
		PMID:  pmid,
		Title: title,
		Text:  text,
		URL:   fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid),
	}, nil
}

// identify attaches the optional NCBI identity parameters.
func (c *PubMedClient) identify(params url.Values) {
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
}

// get performs a GET with bounded retries and backoff.
func (c *PubMedClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 1; attempt <= fetchRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("pubmed request failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("pubmed returned status %d", resp.StatusCode)
			c.logger.Warn("pubmed request rejected",
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode),
			)
			continue
		}

		return body, nil
	}

	return nil, lastErr
}
