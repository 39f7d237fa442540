package skullboard

import (
	"bytes"
	"fmt"

	"skullboard/models"

	"github.com/bwmarrin/discordgo"
)

const (
	postImageName = "skullboard.png"
	postColor     = 0xffd700
)

// buildPost lays out the destination message: the rendered image plus a gold
// embed pointing back at the original.
func buildPost(doc *models.RenderDocument, channelID string, png []byte) *discordgo.MessageSend {
	author := doc.Message.Author
	return &discordgo.MessageSend{
		Files: []*discordgo.File{{
			Name:        postImageName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(png),
		}},
		Embeds: []*discordgo.MessageEmbed{{
			Author: &discordgo.MessageEmbedAuthor{
				Name:    author.DisplayName,
				IconURL: author.AvatarURL,
			},
			Color: postColor,
			Image: &discordgo.MessageEmbedImage{URL: "attachment://" + postImageName},
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Author", Value: fmt.Sprintf("<@%s> (%s)", author.ID, author.DisplayName), Inline: true},
				{Name: "Channel", Value: fmt.Sprintf("<#%s>", channelID), Inline: true},
				{Name: "Jump to Message", Value: fmt.Sprintf("[Click here](%s)", doc.Repost.MessageURL), Inline: true},
			},
			Timestamp: doc.Message.CreatedAt,
		}},
	}
}
