package render

import (
	"time"

	"skullboard/models"
)

// PreviewDocument is the sample served by GET /render?preview=1 for checking page styling.
func PreviewDocument() *models.RenderDocument {
	return &models.RenderDocument{
		Message: models.RenderMessage{
			ID: "0",
			Author: &models.RenderAuthor{
				ID:          "1",
				Username:    "skullfan",
				DisplayName: "Skull Fan",
				AvatarURL:   "https://cdn.discordapp.com/embed/avatars/0.png",
				RoleColor:   "#e67e22",
			},
			Content: "this is **fine** ~~probably~~ <@2> in <#3>\n> quoted\n`code`",
			Attachments: []models.RenderAttachment{{
				URL:         "https://cdn.discordapp.com/embed/avatars/2.png",
				Name:        "avatar.png",
				ContentType: "image/png",
				Width:       256,
				Height:      256,
			}},
			Embeds: []models.RenderEmbed{},
			Stickers: []models.RenderSticker{{
				ID:   "1412179322814333028",
				Name: "sticker",
				URL:  "https://cdn.discordapp.com/stickers/1412179322814333028.png",
			}},
			Reactions: []models.RenderReaction{{Name: models.DefaultGlyph, Count: 3}},
			Reply: &models.RenderReply{
				AuthorName: "SomeUser",
				AvatarURL:  "https://cdn.discordapp.com/embed/avatars/1.png",
				RoleColor:  "#3498db",
				Content:    "check this out <a:dancing:1234567890> and some **bold** ~~strike~~ text that goes on long enough to be truncated eventually",
			},
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
		Guild:   models.RenderGuild{Name: "Test Server"},
		Channel: models.RenderChannel{Name: "general"},
		Repost: models.RepostMeta{
			ReactionCount: 3,
			ReactionEmoji: models.DefaultGlyph,
			MessageURL:    "https://discord.com",
		},
		Resolved: models.ResolvedMentions{
			Users:    map[string]string{"2": "Friend"},
			Roles:    map[string]models.ResolvedRole{},
			Channels: map[string]string{"3": "general"},
		},
	}
}
