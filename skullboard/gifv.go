package skullboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/net/html"
)

const (
	gifPageTimeout = 10 * time.Second
	gifPageLimit   = 4 << 20
	userAgent      = "Mozilla/5.0 (compatible; skullboard/1.0)"
)

var tenorGif = regexp.MustCompile(`https?://media1\.tenor\.com/m[^"'\s]+\.gif`)

// resolveGif fetches a gif landing page and returns the first direct gif URL in it.
func resolveGif(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gifPageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	z := html.NewTokenizer(io.LimitReader(resp.Body, gifPageLimit))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("failed to scan %s: %w", pageURL, err)
			}
			return "", nil
		case html.TextToken:
			if m := tenorGif.Find(z.Text()); m != nil {
				return string(m), nil
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			for {
				_, val, more := z.TagAttr()
				if m := tenorGif.Find(val); m != nil {
					return string(m), nil
				}
				if !more {
					break
				}
			}
		}
	}
}
