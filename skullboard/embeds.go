package skullboard

import (
	"context"
	"path"
	"regexp"
	"strings"

	"skullboard/models"

	"github.com/bwmarrin/discordgo"
)

var bareURL = regexp.MustCompile(`^https?://\S+$`)

// isAutoEmbed reports whether the platform generated e from a link in the body.
func isAutoEmbed(e *discordgo.MessageEmbed) bool {
	switch e.Type {
	case discordgo.EmbedTypeImage, discordgo.EmbedTypeGifv, discordgo.EmbedTypeVideo:
		return true
	}
	return false
}

func withoutQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

func mediaName(u string) string {
	name := path.Base(withoutQuery(u))
	if name == "" || name == "." || name == "/" {
		return "media"
	}
	return name
}

// autoEmbedAttachment turns an auto-embed into an attachment. ok is false when
// no usable media URL exists.
func (a *Assembler) autoEmbedAttachment(ctx context.Context, e *discordgo.MessageEmbed) (models.RenderAttachment, bool) {
	var (
		url         string
		contentType string
		w, h        int
	)
	switch e.Type {
	case discordgo.EmbedTypeGifv:
		if e.URL != "" {
			if gif, err := resolveGif(ctx, a.http, e.URL); err == nil {
				url = gif
			}
		}
		if url == "" && e.Thumbnail != nil {
			url = e.Thumbnail.URL
		}
		if url == "" {
			url = e.URL
		}
		contentType = "image/gif"
		switch {
		case e.Video != nil:
			w, h = e.Video.Width, e.Video.Height
		case e.Thumbnail != nil:
			w, h = e.Thumbnail.Width, e.Thumbnail.Height
		}
	case discordgo.EmbedTypeVideo:
		if e.Video != nil {
			url = e.Video.URL
			w, h = e.Video.Width, e.Video.Height
		}
		contentType = "video/mp4"
	default:
		if e.Image != nil {
			url = e.Image.ProxyURL
			if url == "" {
				url = e.Image.URL
			}
			w, h = e.Image.Width, e.Image.Height
		}
		if url == "" {
			url = e.URL
		}
		contentType = "image/webp"
		if strings.Contains(strings.ToLower(url), ".gif") {
			contentType = "image/gif"
		}
	}
	if url == "" {
		return models.RenderAttachment{}, false
	}
	return models.RenderAttachment{
		URL:         url,
		Name:        mediaName(url),
		ContentType: contentType,
		Width:       w,
		Height:      h,
	}, true
}

func richEmbed(e *discordgo.MessageEmbed) models.RenderEmbed {
	out := models.RenderEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Timestamp:   e.Timestamp,
	}
	if e.Color != 0 {
		c := e.Color
		out.Color = &c
	}
	if e.Author != nil {
		out.Author = &models.RenderEmbedAuthor{Name: e.Author.Name, URL: e.Author.URL, IconURL: e.Author.IconURL}
	}
	if e.Thumbnail != nil {
		out.Thumbnail = e.Thumbnail.URL
	}
	if e.Image != nil {
		out.Image = e.Image.URL
	}
	if e.Video != nil {
		out.Video = e.Video.URL
	}
	if e.Footer != nil {
		out.Footer = &models.RenderEmbedFooter{Text: e.Footer.Text, IconURL: e.Footer.IconURL}
	}
	if e.Provider != nil {
		out.Provider = e.Provider.Name
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, models.RenderEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

// splitEmbeds separates auto-embeds, returned as attachments, from rich embeds.
// canonical holds the query-less page URLs of the auto-embeds.
func (a *Assembler) splitEmbeds(ctx context.Context, embeds []*discordgo.MessageEmbed) (media []models.RenderAttachment, rich []models.RenderEmbed, canonical map[string]bool) {
	canonical = map[string]bool{}
	rich = []models.RenderEmbed{}
	for _, e := range embeds {
		if !isAutoEmbed(e) {
			rich = append(rich, richEmbed(e))
			continue
		}
		if e.URL != "" {
			canonical[withoutQuery(e.URL)] = true
		}
		if att, ok := a.autoEmbedAttachment(ctx, e); ok {
			media = append(media, att)
		}
	}
	return media, rich, canonical
}

// stripContent hides a body that is nothing but the link an auto-embed was made from.
func stripContent(content string, canonical map[string]bool) string {
	trimmed := strings.TrimSpace(content)
	if len(canonical) > 0 && bareURL.MatchString(trimmed) && canonical[withoutQuery(trimmed)] {
		return ""
	}
	return content
}
