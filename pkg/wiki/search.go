package wiki

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

type searchResponse struct {
	Query struct {
		SearchInfo struct {
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []struct {
			Title  string `json:"title"`
			PageID int    `json:"pageid"`
		} `json:"search"`
	} `json:"query"`
}

// Search returns up to limit page titles matching query, in API rank order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	titles, _, err := c.search(ctx, query, limit, false)
	return titles, err
}

func (c *Client) search(ctx context.Context, query string, limit int, withSuggestion bool) ([]string, string, error) {
	if limit < 1 {
		limit = 1
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "")
	if withSuggestion {
		params.Set("srinfo", "suggestion")
	}

	var resp searchResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, "", err
	}

	titles := make([]string, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		titles = append(titles, hit.Title)
	}
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, resp.Query.SearchInfo.Suggestion, nil
}

// suggest resolves a loose title the way a reader would type it: the API's
// spelling suggestion wins, then the top search hit.
func (c *Client) suggest(ctx context.Context, title string) (string, error) {
	titles, suggestion, err := c.search(ctx, title, 1, true)
	if err != nil {
		return "", err
	}
	if s := strings.TrimSpace(suggestion); s != "" {
		return s, nil
	}
	if len(titles) == 0 {
		return "", ErrPageNotFound
	}
	return titles[0], nil
}
