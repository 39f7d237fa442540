package models

// RenderDocument is the normalized, renderer-ready form of a source message.
// It is also the JSON body accepted by POST /api/render.
type RenderDocument struct {
	Message  RenderMessage    `json:"message"`
	Guild    RenderGuild      `json:"guild"`
	Channel  RenderChannel    `json:"channel"`
	Repost   RepostMeta       `json:"skullboard"`
	Resolved ResolvedMentions `json:"resolved"`
}

// RenderMessage carries the message body and everything hanging off it.
type RenderMessage struct {
	ID          string             `json:"id"`
	Author      *RenderAuthor      `json:"author"`
	Content     string             `json:"content"`
	Attachments []RenderAttachment `json:"attachments"`
	Embeds      []RenderEmbed      `json:"embeds"`
	Reactions   []RenderReaction   `json:"reactions"`
	Reply       *RenderReply       `json:"reply,omitempty"`
	Stickers    []RenderSticker    `json:"stickers,omitempty"`
	CreatedAt   string             `json:"createdAt"`
	EditedAt    string             `json:"editedAt,omitempty"`
}

type RenderAuthor struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Bot         bool   `json:"bot"`
	RoleColor   string `json:"roleColor,omitempty"`
	RoleIconURL string `json:"roleIconUrl,omitempty"`
	RoleName    string `json:"roleName,omitempty"`
	ClanIconURL string `json:"clanIconUrl,omitempty"`
	ClanTag     string `json:"clanTag,omitempty"`
}

type RenderAttachment struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Size        int    `json:"size,omitempty"`
}

// IsImage reports whether the attachment should be drawn as an image.
func (a RenderAttachment) IsImage() bool {
	return len(a.ContentType) >= 6 && a.ContentType[:6] == "image/"
}

// IsVideo reports whether the attachment should be drawn as a video.
func (a RenderAttachment) IsVideo() bool {
	return len(a.ContentType) >= 6 && a.ContentType[:6] == "video/"
}

type RenderEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type RenderEmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"iconURL,omitempty"`
}

type RenderEmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"iconURL,omitempty"`
}

// RenderEmbed is an author-authored rich embed. Auto-embeds never end up here.
type RenderEmbed struct {
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Color       *int               `json:"color,omitempty"`
	URL         string             `json:"url,omitempty"`
	Author      *RenderEmbedAuthor `json:"author,omitempty"`
	Thumbnail   string             `json:"thumbnail,omitempty"`
	Image       string             `json:"image,omitempty"`
	Video       string             `json:"video,omitempty"`
	Footer      *RenderEmbedFooter `json:"footer,omitempty"`
	Timestamp   string             `json:"timestamp,omitempty"`
	Fields      []RenderEmbedField `json:"fields,omitempty"`
	Provider    string             `json:"provider,omitempty"`
}

type RenderReaction struct {
	Name     string `json:"name"`
	EmojiURL string `json:"emojiUrl,omitempty"`
	Count    int    `json:"count"`
	IsCustom bool   `json:"isCustom"`
}

type RenderReply struct {
	AuthorName string `json:"authorName"`
	AvatarURL  string `json:"avatarUrl"`
	RoleColor  string `json:"roleColor,omitempty"`
	Content    string `json:"content"`
	Attachment bool   `json:"attachment"`
	Edited     bool   `json:"edited"`
}

type RenderSticker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type RenderGuild struct {
	Name string `json:"name"`
}

type RenderChannel struct {
	Name string `json:"name"`
}

// RepostMeta describes why the message is being reposted.
type RepostMeta struct {
	ReactionCount int    `json:"reactionCount"`
	ReactionEmoji string `json:"reactionEmoji"`
	MessageURL    string `json:"messageUrl"`
}

type ResolvedRole struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ResolvedMentions maps mention ids to display values.
type ResolvedMentions struct {
	Users    map[string]string       `json:"users"`
	Roles    map[string]ResolvedRole `json:"roles"`
	Channels map[string]string       `json:"channels"`
}

// NewResolvedMentions returns empty, non-nil lookup tables.
func NewResolvedMentions() ResolvedMentions {
	return ResolvedMentions{
		Users:    map[string]string{},
		Roles:    map[string]ResolvedRole{},
		Channels: map[string]string{},
	}
}
