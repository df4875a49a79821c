package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Details holds the localized store texts of an app.
type Details struct {
	Description string
	// Requirements is set only when HasRequirements is true.
	Requirements    string
	HasRequirements bool
}

var stripPolicy = bluemonday.StrictPolicy()

// FetchDetails reads the short description and minimum PC requirements of
// appID in the configured language.
func (c *Client) FetchDetails(ctx context.Context, appID int) (Details, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	q := url.Values{}
	q.Set("appids", strconv.Itoa(appID))
	q.Set("l", c.opts.Language)
	resp, err := c.get(ctx, c.opts.APIURL+"/appdetails?"+q.Encode(), nil)
	if err != nil {
		return Details{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Details{}, fmt.Errorf("%w: appdetails: %v", ErrShape, err)
	}
	return parseDetails(payload, appID)
}

func parseDetails(payload map[string]json.RawMessage, appID int) (Details, error) {
	raw, ok := payload[strconv.Itoa(appID)]
	if !ok {
		return Details{}, fmt.Errorf("%w: app %d missing from response", ErrShape, appID)
	}

	var app struct {
		Success bool `json:"success"`
		Data    struct {
			ShortDescription string          `json:"short_description"`
			PCRequirements   json.RawMessage `json:"pc_requirements"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &app); err != nil {
		return Details{}, fmt.Errorf("%w: app %d: %v", ErrShape, appID, err)
	}
	if !app.Success {
		return Details{}, fmt.Errorf("%w: app %d: success=false", ErrShape, appID)
	}

	d := Details{Description: StripTags(app.Data.ShortDescription)}

	// An app without requirements reports an empty array instead of an object.
	if reqs := bytes.TrimSpace(app.Data.PCRequirements); len(reqs) > 0 && reqs[0] == '{' {
		var pc struct {
			Minimum string `json:"minimum"`
		}
		if err := json.Unmarshal(reqs, &pc); err == nil {
			d.Requirements = RequirementsText(pc.Minimum)
			d.HasRequirements = true
		}
	}
	return d, nil
}

// StripTags removes all markup from s and decodes entities.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// RequirementsText converts a requirements fragment into plain lines: list
// items and line breaks end a line, other markup is dropped.
func RequirementsText(fragment string) string {
	nodes, err := nethtml.ParseFragment(strings.NewReader(fragment), &nethtml.Node{
		Type:     nethtml.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return StripTags(fragment)
	}

	var b strings.Builder
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		switch n.Type {
		case nethtml.TextNode:
			b.WriteString(n.Data)
		case nethtml.ElementNode:
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == nethtml.ElementNode {
			switch n.DataAtom {
			case atom.Li, atom.Ul, atom.Ol, atom.P:
				b.WriteByte('\n')
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
