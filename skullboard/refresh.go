package skullboard

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"skullboard/models"
	"skullboard/utils"
)

var discordCDN = regexp.MustCompile(`^https?://(?:cdn|media)\.discordapp\.(?:com|net)/`)

// expiring reports whether url is a signed CDN link that will stop working.
func expiring(url string) bool {
	return discordCDN.MatchString(url) && strings.Contains(url, "ex=")
}

// refreshAttachments swaps expiring CDN links in every list for fresh ones
// using a single API call. Links that cannot be refreshed are left alone.
func refreshAttachments(ctx context.Context, p Platform, lists ...[]models.RenderAttachment) {
	var urls []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, a := range list {
			if expiring(a.URL) && !seen[a.URL] {
				seen[a.URL] = true
				urls = append(urls, a.URL)
			}
		}
	}
	if len(urls) == 0 {
		return
	}

	fresh, err := p.RefreshURLs(ctx, urls)
	if err != nil {
		utils.Warn("Skullboard", "RefreshURLs", fmt.Sprintf("keeping %d original urls: %v", len(urls), err))
		return
	}
	for _, list := range lists {
		for i := range list {
			if u, ok := fresh[list[i].URL]; ok && u != "" {
				list[i].URL = u
			}
		}
	}
}
