package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

type pageInfo struct {
	PageID    int               `json:"pageid"`
	Title     string            `json:"title"`
	FullURL   string            `json:"fullurl"`
	Missing   bool              `json:"missing"`
	Invalid   bool              `json:"invalid"`
	PageProps map[string]string `json:"pageprops"`
	Extract   string            `json:"extract"`
	ExtLinks  []struct {
		URL string `json:"url"`
	} `json:"extlinks"`
}

type queryResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages []pageInfo `json:"pages"`
	} `json:"query"`
}

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
}

// Page fetches a page by title, following redirects. With autoSuggest the
// title is first resolved through search so loose input still lands on a page.
//
// Returns ErrPageNotFound or *DisambiguationError for the two expected
// failure shapes; anything else is a transport or API error.
func (c *Client) Page(ctx context.Context, title string, autoSuggest bool) (*Page, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrPageNotFound
	}
	if autoSuggest {
		resolved, err := c.suggest(ctx, title)
		if err != nil {
			return nil, err
		}
		title = resolved
	}

	info, err := c.pageInfo(ctx, title, true)
	if err != nil {
		return nil, err
	}
	if info.Missing || info.Invalid {
		return nil, ErrPageNotFound
	}
	if info.isDisambiguation() {
		options, err := c.disambiguationOptions(ctx, info.Title)
		if err != nil {
			return nil, err
		}
		return nil, &DisambiguationError{Title: info.Title, Options: options}
	}

	summary, err := c.intro(ctx, info.Title)
	if err != nil {
		return nil, err
	}
	refs, err := c.references(ctx, info.Title)
	if err != nil {
		return nil, err
	}

	content := info.Extract
	if strings.TrimSpace(content) == "" {
		// Wikis without the TextExtracts extension return no extract.
		content, err = c.renderedText(ctx, info.Title, info.FullURL)
		if err != nil {
			return nil, err
		}
	}

	return &Page{
		PageID:     info.PageID,
		Title:      info.Title,
		URL:        info.FullURL,
		Summary:    summary,
		Content:    content,
		References: refs,
	}, nil
}

// Resolve looks up the id, canonical title and URL of a page in a single
// request. Only PageID, Title and URL are set on the result. A disambiguation
// page yields a *DisambiguationError without options.
func (c *Client) Resolve(ctx context.Context, title string) (*Page, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrPageNotFound
	}
	info, err := c.pageInfo(ctx, title, false)
	if err != nil {
		return nil, err
	}
	if info.Missing || info.Invalid {
		return nil, ErrPageNotFound
	}
	if info.isDisambiguation() {
		return nil, &DisambiguationError{Title: info.Title}
	}
	return &Page{PageID: info.PageID, Title: info.Title, URL: info.FullURL}, nil
}

func (p *pageInfo) isDisambiguation() bool {
	_, ok := p.PageProps["disambiguation"]
	return ok
}

func (c *Client) pageInfo(ctx context.Context, title string, withExtract bool) (*pageInfo, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "info|pageprops")
	params.Set("inprop", "url")
	params.Set("ppprop", "disambiguation")
	params.Set("redirects", "1")
	if withExtract {
		params.Set("prop", "info|pageprops|extracts")
		params.Set("explaintext", "1")
		params.Set("exsectionformat", "plain")
	}
	params.Set("titles", title)

	var resp queryResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Query.Pages) == 0 {
		return nil, ErrPageNotFound
	}
	return &resp.Query.Pages[0], nil
}

// intro returns the plain-text lead section.
func (c *Client) intro(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("titles", title)

	var resp queryResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Query.Pages) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Query.Pages[0].Extract), nil
}

// references returns the page's external links, following continuation.
func (c *Client) references(ctx context.Context, title string) ([]string, error) {
	refs := []string{}
	cont := map[string]string{}
	for {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("prop", "extlinks")
		params.Set("ellimit", "max")
		params.Set("titles", title)
		for k, v := range cont {
			params.Set(k, v)
		}

		var resp queryResponse
		if err := c.get(ctx, params, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Query.Pages {
			for _, l := range p.ExtLinks {
				link := l.URL
				if strings.HasPrefix(link, "//") {
					link = "http:" + link
				}
				refs = append(refs, link)
			}
		}
		if len(resp.Continue) == 0 {
			return refs, nil
		}
		cont = resp.Continue
	}
}

func (c *Client) renderedHTML(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", title)
	params.Set("prop", "text")
	params.Set("redirects", "1")

	var resp parseResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}
	return resp.Parse.Text, nil
}

// renderedText extracts readable text from the rendered page HTML.
func (c *Client) renderedText(ctx context.Context, title, pageURL string) (string, error) {
	html, err := c.renderedHTML(ctx, title)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return "", fmt.Errorf("wiki: extracting text of %q: %w", title, err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// disambiguationOptions lists the link texts of the list items of a
// disambiguation page, in page order. Links to missing pages are skipped.
func (c *Client) disambiguationOptions(ctx context.Context, title string) ([]string, error) {
	html, err := c.renderedHTML(ctx, title)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("wiki: parsing disambiguation page %q: %w", title, err)
	}

	options := []string{}
	seen := make(map[string]bool)
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		if class, _ := li.Attr("class"); strings.Contains(class, "tocsection") {
			return
		}
		a := li.Find("a").First()
		if a.Length() == 0 || a.HasClass("new") {
			return
		}
		option := strings.TrimSpace(a.Text())
		if option == "" || seen[option] {
			return
		}
		seen[option] = true
		options = append(options, option)
	})
	return options, nil
}
