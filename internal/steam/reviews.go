package steam

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NoSummary is the review summary of a store page without one.
const NoSummary = "N/A"

// Cookies that pass the store's age gate.
var ageGateCookies = []*http.Cookie{
	{Name: "birthtime", Value: "568022401"},
	{Name: "wants_mature_content", Value: "1"},
}

var percentPattern = regexp.MustCompile(`(\d+)%`)

// Reviews is the user review summary of a store page.
type Reviews struct {
	Summary    string
	Percentage *int
}

// FetchReviews reads the review summary from the store page of appID.
func (c *Client) FetchReviews(ctx context.Context, appID int) (Reviews, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/app/%d", c.opts.StoreURL, appID)
	resp, err := c.get(ctx, url, func(req *http.Request) {
		req.Header.Set("User-Agent", c.opts.UserAgent)
		for _, ck := range ageGateCookies {
			req.AddCookie(ck)
		}
	})
	if err != nil {
		return Reviews{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return Reviews{}, fmt.Errorf("%w: store page: %v", ErrShape, err)
	}
	return ParseReviews(doc), nil
}

// ParseReviews extracts the summary label and the positive percentage from
// a parsed store page. Missing elements yield NoSummary and no percentage.
func ParseReviews(doc *html.Node) Reviews {
	r := Reviews{Summary: NoSummary}

	if span := findElement(doc, atom.Span, "game_review_summary"); span != nil {
		r.Summary = strippedText(span)
	}

	if row := findElement(doc, atom.Div, "user_reviews_summary_row"); row != nil {
		if tip, ok := attr(row, "data-tooltip-text"); ok {
			if m := percentPattern.FindStringSubmatch(tip); m != nil {
				if p, err := strconv.Atoi(m[1]); err == nil && p <= 100 {
					r.Percentage = &p
				}
			}
		}
	}
	return r
}

// findElement returns the first element of the given type carrying class.
func findElement(n *html.Node, a atom.Atom, class string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// strippedText concatenates the trimmed text pieces below n.
func strippedText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
