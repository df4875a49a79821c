package steam

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
)

// maxBannerBytes bounds a banner download.
const maxBannerBytes = 16 << 20

// FetchBanner downloads the header image of appID. The response must declare
// an image content type.
func (c *Client) FetchBanner(ctx context.Context, appID int) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/%d/header.jpg", c.opts.CDNURL, appID)
	resp, err := c.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); !isImage(ct) {
		return nil, fmt.Errorf("%w: %q", ErrNotImage, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBannerBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrNotImage)
	}
	return data, nil
}

func isImage(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "image")
	}
	return strings.HasPrefix(mt, "image/")
}
