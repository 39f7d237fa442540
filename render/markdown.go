package render

import (
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"skullboard/models"
)

// Patterns run on HTML-escaped text, so markup delimiters appear as entities.
var (
	reCodeSpanBlock = regexp.MustCompile("```(\\w*)\\n?(.*?)```")
	reInlineCode    = regexp.MustCompile("`([^`]+)`")
	reSlashCommand  = regexp.MustCompile(`&lt;/([^:&]+):\d+&gt;`)
	reUserMention   = regexp.MustCompile(`&lt;@!?(\d+)&gt;`)
	reRoleMention   = regexp.MustCompile(`&lt;@&amp;(\d+)&gt;`)
	reChannelMent   = regexp.MustCompile(`&lt;#(\d+)&gt;`)
	reTimestamp     = regexp.MustCompile(`&lt;t:(-?\d+)(?::([tTdDfFR]))?&gt;`)
	reCustomEmoji   = regexp.MustCompile(`&lt;(a?):(\w+):(\d+)&gt;`)
	reMaskedLink    = regexp.MustCompile(`\[([^\]]+)\]\((?:&lt;)?(https?://[^\s)\x00]+?)(?:&gt;)?\)`)
	reAngleURL      = regexp.MustCompile(`&lt;(https?://\S+?)&gt;`)
	reBareURL       = regexp.MustCompile(`(^|\s)(https?://[^\s<>"\x00]+)`)
	reBoldItalic    = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	reBold          = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic        = regexp.MustCompile(`\*(.+?)\*`)
	reUnderline     = regexp.MustCompile(`__(.+?)__`)
	reStrike        = regexp.MustCompile(`~~(.+?)~~`)
	reSpoiler       = regexp.MustCompile(`\|\|(.+?)\|\|`)
	reHeader        = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)
	reOrderedItem   = regexp.MustCompile(`^(\d+)\. (.+)$`)
	reToken         = regexp.MustCompile(`\x00(\d+)\x00`)

	// Raw patterns for jumbo detection and reply previews.
	reRawCustomEmoji = regexp.MustCompile(`<(a?):(\w+):(\d+)>`)
)

// inline holds finished HTML fragments out of reach of later passes.
type inline struct {
	resolved models.ResolvedMentions
	jumbo    bool
	stash    []string
}

func (in *inline) keep(fragment string) string {
	in.stash = append(in.stash, fragment)
	return "\x00" + strconv.Itoa(len(in.stash)-1) + "\x00"
}

func (in *inline) expand(s string) string {
	return reToken.ReplaceAllStringFunc(s, func(tok string) string {
		i, err := strconv.Atoi(reToken.FindStringSubmatch(tok)[1])
		if err != nil || i >= len(in.stash) {
			return ""
		}
		return in.expand(in.stash[i])
	})
}

// replace is ReplaceAllStringFunc with submatches.
func replace(re *regexp.Regexp, s string, fn func(m []string) string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		return fn(re.FindStringSubmatch(match))
	})
}

func attr(s string) string { return html.EscapeString(html.UnescapeString(s)) }

func (in *inline) render(line string) string {
	s := html.EscapeString(line)

	s = replace(reCodeSpanBlock, s, func(m []string) string {
		lang := ""
		if m[1] != "" {
			lang = fmt.Sprintf(` language="%s"`, m[1])
		}
		return in.keep(fmt.Sprintf(`<discord-code multiline%s>%s</discord-code>`, lang, strings.TrimSpace(m[2])))
	})
	s = replace(reInlineCode, s, func(m []string) string {
		return in.keep("<discord-code>" + m[1] + "</discord-code>")
	})

	s = replace(reSlashCommand, s, func(m []string) string {
		return in.keep(`<discord-mention type="slash">` + m[1] + `</discord-mention>`)
	})
	s = replace(reUserMention, s, func(m []string) string {
		name, ok := in.resolved.Users[m[1]]
		if !ok {
			name = "Unknown User"
		}
		return in.keep(`<discord-mention type="user">` + html.EscapeString(name) + `</discord-mention>`)
	})
	s = replace(reRoleMention, s, func(m []string) string {
		role, ok := in.resolved.Roles[m[1]]
		if !ok {
			return in.keep(`<discord-mention type="role">Unknown Role</discord-mention>`)
		}
		return in.keep(fmt.Sprintf(`<discord-mention type="role" color="%s">%s</discord-mention>`,
			html.EscapeString(role.Color), html.EscapeString(role.Name)))
	})
	s = replace(reChannelMent, s, func(m []string) string {
		name, ok := in.resolved.Channels[m[1]]
		if !ok {
			name = "unknown-channel"
		}
		return in.keep(`<discord-mention type="channel">` + html.EscapeString(name) + `</discord-mention>`)
	})
	s = replace(reTimestamp, s, func(m []string) string {
		return in.keep(fmt.Sprintf(`<discord-time timestamp="%s" format="%s"></discord-time>`, m[1], m[2]))
	})
	s = replace(reCustomEmoji, s, func(m []string) string {
		return in.keep(customEmojiImg(m[1] == "a", m[2], m[3], in.jumbo))
	})

	s = replace(reMaskedLink, s, func(m []string) string {
		return in.keep(fmt.Sprintf(`<discord-link href="%s" target="_blank">%s</discord-link>`, attr(m[2]), m[1]))
	})
	s = replace(reAngleURL, s, func(m []string) string {
		return in.keep(fmt.Sprintf(`<discord-link href="%s" target="_blank">%s</discord-link>`, attr(m[1]), m[1]))
	})
	s = replace(reBareURL, s, func(m []string) string {
		return m[1] + in.keep(fmt.Sprintf(`<discord-link href="%s" target="_blank">%s</discord-link>`, attr(m[2]), m[2]))
	})

	s = reBoldItalic.ReplaceAllString(s, "<discord-bold><discord-italic>$1</discord-italic></discord-bold>")
	s = reBold.ReplaceAllString(s, "<discord-bold>$1</discord-bold>")
	s = reItalic.ReplaceAllString(s, "<discord-italic>$1</discord-italic>")
	s = reUnderline.ReplaceAllString(s, "<discord-underlined>$1</discord-underlined>")
	s = reStrike.ReplaceAllString(s, "<s>$1</s>")
	s = reSpoiler.ReplaceAllString(s, "<discord-spoiler>$1</discord-spoiler>")

	if in.jumbo {
		s = wrapJumboEmoji(s)
	}
	return in.expand(s)
}

func customEmojiImg(animated bool, name, id string, jumbo bool) string {
	ext := "webp"
	if animated {
		ext = "gif"
	}
	cdnSize, displaySize, margin := 32, 22, 1
	if jumbo {
		cdnSize, displaySize, margin = 64, 48, 2
	}
	return fmt.Sprintf(`<img src="https://cdn.discordapp.com/emojis/%s.%s?size=%d&amp;quality=lossless" alt=":%s:" title=":%s:" style="width:%dpx;height:%dpx;vertical-align:middle;display:inline-block;margin:0 %dpx;">`,
		id, ext, cdnSize, name, name, displaySize, displaySize, margin)
}

func isEmojiRune(r rune) bool {
	return unicode.Is(unicode.So, r) ||
		(r >= 0x1F000 && r <= 0x1FAFF) ||
		(r >= 0x2600 && r <= 0x27BF)
}

func isEmojiJoiner(r rune) bool {
	return r == 0x200D || r == 0xFE0F || (r >= 0x1F3FB && r <= 0x1F3FF) || (r >= 0xE0020 && r <= 0xE007F)
}

// countEmoji counts emoji clusters in s and reports whether s holds nothing else but whitespace.
func countEmoji(s string) (count int, onlyEmoji bool) {
	onlyEmoji = true
	joined := false
	for _, r := range s {
		switch {
		case isEmojiRune(r):
			if !joined {
				count++
			}
			joined = false
		case isEmojiJoiner(r):
			joined = r == 0x200D
		case unicode.IsSpace(r):
			joined = false
		default:
			onlyEmoji = false
			joined = false
		}
	}
	return count, onlyEmoji
}

// isJumbo reports whether content is made only of emoji, at most 30 of them.
func isJumbo(content string) bool {
	custom := len(reRawCustomEmoji.FindAllString(content, -1))
	rest := reRawCustomEmoji.ReplaceAllString(content, "")
	n, only := countEmoji(rest)
	total := custom + n
	return only && total > 0 && total <= 30
}

func wrapJumboEmoji(s string) string {
	var (
		b       strings.Builder
		cluster strings.Builder
	)
	flush := func() {
		if cluster.Len() == 0 {
			return
		}
		b.WriteString(`<span style="font-size:48px;line-height:1;vertical-align:middle;">`)
		b.WriteString(cluster.String())
		b.WriteString(`</span>`)
		cluster.Reset()
	}
	for _, r := range s {
		if isEmojiRune(r) || (cluster.Len() > 0 && isEmojiJoiner(r)) {
			cluster.WriteRune(r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

// Markdown converts Discord message markdown into discord-* component markup.
func Markdown(content string, resolved models.ResolvedMentions) template.HTML {
	content = strings.ReplaceAll(content, "\x00", "")
	in := &inline{resolved: resolved, jumbo: isJumbo(content)}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))

	var (
		inCode   bool
		codeLang string
		code     []string
	)
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if strings.HasPrefix(line, "```") {
			if !inCode {
				inCode = true
				codeLang = strings.TrimSpace(line[3:])
				code = code[:0]
				continue
			}
			inCode = false
			lang := ""
			if codeLang != "" {
				lang = fmt.Sprintf(` language="%s"`, html.EscapeString(codeLang))
			}
			out = append(out, fmt.Sprintf(`<discord-code multiline%s>%s</discord-code>`,
				lang, html.EscapeString(strings.Join(code, "\n"))))
			continue
		}
		if inCode {
			code = append(code, line)
			continue
		}

		switch {
		case strings.HasPrefix(line, "-# "):
			out = append(out, "<discord-subscript>"+in.render(line[3:])+"</discord-subscript>")
		case reHeader.MatchString(line):
			m := reHeader.FindStringSubmatch(line)
			out = append(out, fmt.Sprintf(`<discord-header level="%d">%s</discord-header>`, len(m[1]), in.render(m[2])))
		case isQuoteLine(line):
			quote := []string{in.render(quoteBody(line))}
			for i+1 < len(lines) && isQuoteLine(lines[i+1]) {
				i++
				quote = append(quote, in.render(quoteBody(lines[i])))
			}
			out = append(out, "<discord-quote>"+strings.Join(quote, "<br>")+"</discord-quote>")
		case strings.TrimSpace(line) == "":
			out = append(out, "<div></div>")
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			out = append(out, "<discord-unordered-list><discord-list-item>"+in.render(line[2:])+"</discord-list-item></discord-unordered-list>")
		case reOrderedItem.MatchString(line):
			m := reOrderedItem.FindStringSubmatch(line)
			out = append(out, fmt.Sprintf(`<discord-ordered-list start="%s"><discord-list-item>%s</discord-list-item></discord-ordered-list>`,
				m[1], in.render(m[2])))
		default:
			out = append(out, in.render(line)+"<br>")
		}
	}

	// An unterminated fence is shown as code.
	if inCode {
		out = append(out, "<discord-code multiline>"+html.EscapeString(strings.Join(code, "\n"))+"</discord-code>")
	}

	return template.HTML(strings.Join(out, "\n"))
}

func isQuoteLine(line string) bool {
	return strings.HasPrefix(line, "> ") || line == ">"
}

func quoteBody(line string) string {
	return strings.TrimPrefix(strings.TrimPrefix(line, ">"), " ")
}

var (
	reReplyFence   = regexp.MustCompile("(?s)```.*?```")
	reReplyCode    = regexp.MustCompile("`[^`]+`")
	reReplyMarks   = regexp.MustCompile(`\*{1,3}|_{1,2}|~~|\|\|`)
	reReplyHeader  = regexp.MustCompile(`(?m)^#+\s*`)
	reReplyQuote   = regexp.MustCompile(`(?m)^>\s*`)
	reReplyTags    = regexp.MustCompile(`<@!?\d+>|<@&\d+>|<#\d+>|</[^:>]+:\d+>|<t:\d+(?::[tTdDfFR])?>|<https?://[^\s>]+>`)
	reReplyURL     = regexp.MustCompile(`https?://\S+`)
	reReplySpaces  = regexp.MustCompile(`\s{2,}`)
	rePartialTag   = regexp.MustCompile(`<[^>]*$`)
)

const (
	replyEmojiFmt  = `<img src="https://cdn.discordapp.com/emojis/%s.%s?size=32" alt=":%s:" style="width:1em;height:1em;vertical-align:-0.2em;display:inline-block;">`
	replyEllipsis  = "…"
	replyMaxLength = 80
)

// ReplyPreview flattens content to one line of plain text for the reply bar.
// Custom emoji stay as small images; the result is cut at 80 characters.
func ReplyPreview(content string) template.HTML {
	text := strings.NewReplacer("\r\n", " ", "\n", " ").Replace(content)
	text = reReplyFence.ReplaceAllString(text, "")
	text = reReplyCode.ReplaceAllString(text, "")
	text = reReplyMarks.ReplaceAllString(text, "")
	text = reReplyHeader.ReplaceAllString(text, "")
	text = reReplyQuote.ReplaceAllString(text, "")
	text = reReplyTags.ReplaceAllString(text, "")
	text = reReplyURL.ReplaceAllString(text, "")
	text = strings.TrimSpace(reReplySpaces.ReplaceAllString(text, " "))

	var (
		b         strings.Builder
		count     int
		truncated bool
	)
	appendText := func(raw string) {
		if raw == "" {
			return
		}
		if count >= replyMaxLength {
			truncated = true
			return
		}
		remaining := replyMaxLength - count
		if n := utf8.RuneCountInString(raw); n > remaining {
			raw = string([]rune(raw)[:remaining])
			truncated = true
		}
		b.WriteString(html.EscapeString(raw))
		count += utf8.RuneCountInString(raw)
	}

	last := 0
	for _, loc := range reRawCustomEmoji.FindAllStringSubmatchIndex(text, -1) {
		appendText(text[last:loc[0]])
		if count < replyMaxLength {
			ext := "webp"
			if loc[3] > loc[2] {
				ext = "gif"
			}
			name := text[loc[4]:loc[5]]
			id := text[loc[6]:loc[7]]
			fmt.Fprintf(&b, replyEmojiFmt, id, ext, name)
		} else {
			truncated = true
		}
		last = loc[1]
	}
	appendText(text[last:])

	out := rePartialTag.ReplaceAllString(b.String(), "")
	if strings.TrimSpace(out) == "" {
		return template.HTML(replyEllipsis)
	}
	if truncated {
		out += replyEllipsis
	}
	return template.HTML(out)
}
