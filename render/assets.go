package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"skullboard/cache"
	"skullboard/models"
	"skullboard/utils"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// AssetTTL bounds how long a downloaded asset is served locally.
	AssetTTL = 60 * time.Second

	assetUserAgent = "Mozilla/5.0 (compatible; skullboard-render/1.0)"
	maxAssetBytes  = 50 << 20
	maxParallel    = 8
)

var discordCDN = regexp.MustCompile(`^https?://(?:cdn|media)\.discordapp\.(?:com|net)/`)

// Asset is a downloaded CDN object.
type Asset struct {
	Data        []byte
	ContentType string
}

// AssetProxy pre-downloads Discord CDN objects so the headless page only loads
// local resources. Expired or token-gated URLs are detected here instead of
// showing up as broken images in the screenshot.
type AssetProxy struct {
	client  *http.Client
	entries *cache.TTL[string, Asset]
	metrics *Metrics
}

func NewAssetProxy(client *http.Client, metrics *Metrics, opts ...cache.Option) *AssetProxy {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &AssetProxy{
		client:  client,
		entries: cache.New[string, Asset](AssetTTL, opts...),
		metrics: metrics,
	}
}

// AssetKey is the cache key for rawURL.
func AssetKey(rawURL string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(rawURL))
}

// Lookup returns a live cached asset.
func (p *AssetProxy) Lookup(key string) (Asset, bool) {
	return p.entries.Get(key)
}

func (p *AssetProxy) Sweep() int { return p.entries.Sweep() }

func (p *AssetProxy) Len() int { return p.entries.Len() }

// Proxy returns the local URL for rawURL. Non-CDN URLs are returned unchanged.
// ok is false when a CDN URL could not be downloaded.
func (p *AssetProxy) Proxy(ctx context.Context, rawURL, host string) (string, bool) {
	if !discordCDN.MatchString(rawURL) {
		return rawURL, true
	}

	asset, err := p.download(ctx, rawURL)
	if err != nil {
		p.metrics.AssetDownloads.WithLabelValues("failed").Inc()
		utils.Logger.Warn("pre-download failed", zap.String("url", rawURL), zap.Error(err))
		return "", false
	}
	p.metrics.AssetDownloads.WithLabelValues("ok").Inc()
	p.metrics.AssetBytes.Add(float64(len(asset.Data)))

	key := AssetKey(rawURL)
	p.entries.Set(key, asset)
	return fmt.Sprintf("http://%s/api/render?_img=%s&_ext=.%s", host, key, assetExt(rawURL)), true
}

func (p *AssetProxy) download(ctx context.Context, rawURL string) (Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", assetUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Asset{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return Asset{}, fmt.Errorf("failed to read body: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}

	utils.Logger.Debug("asset cached",
		zap.String("url", rawURL),
		zap.String("size", humanize.Bytes(uint64(len(data)))))
	return Asset{Data: data, ContentType: ct}, nil
}

// assetExt derives the extension the render page sees from the URL path.
func assetExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "png"
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" {
		return "png"
	}
	return strings.ToLower(ext)
}

// ProxyDocument rewrites every CDN URL in doc to a local one. Attachments,
// stickers and embed media that fail to download are removed; avatars and
// icons on the author keep their original URL.
func (p *AssetProxy) ProxyDocument(ctx context.Context, doc *models.RenderDocument, host string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	// keepOnFail: the original URL stays when the download fails.
	rewrite := func(target *string, keepOnFail bool) {
		if *target == "" {
			return
		}
		src := *target
		g.Go(func() error {
			local, ok := p.Proxy(gctx, src, host)
			switch {
			case ok:
				*target = local
			case !keepOnFail:
				*target = ""
			}
			return nil
		})
	}

	msg := &doc.Message
	if msg.Author != nil {
		rewrite(&msg.Author.AvatarURL, true)
		rewrite(&msg.Author.RoleIconURL, true)
		rewrite(&msg.Author.ClanIconURL, true)
	}

	for i := range msg.Attachments {
		rewrite(&msg.Attachments[i].URL, false)
	}
	for i := range msg.Stickers {
		rewrite(&msg.Stickers[i].URL, false)
	}

	for i := range msg.Embeds {
		e := &msg.Embeds[i]
		rewrite(&e.Thumbnail, false)
		rewrite(&e.Image, false)
		rewrite(&e.Video, false)
		if e.Author != nil {
			rewrite(&e.Author.IconURL, false)
		}
		if e.Footer != nil {
			rewrite(&e.Footer.IconURL, false)
		}
	}

	if msg.Reply != nil {
		rewrite(&msg.Reply.AvatarURL, true)
	}

	_ = g.Wait()

	attachments := msg.Attachments[:0]
	for _, a := range msg.Attachments {
		if a.URL != "" {
			attachments = append(attachments, a)
		}
	}
	msg.Attachments = attachments

	if msg.Stickers != nil {
		stickers := msg.Stickers[:0]
		for _, s := range msg.Stickers {
			if s.URL != "" {
				stickers = append(stickers, s)
			}
		}
		msg.Stickers = stickers
	}
}
