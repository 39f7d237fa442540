package handlers

import (
	"time"

	"skullboard/bot"
	"skullboard/skullboard"
	"skullboard/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Deps is what the handlers need beyond the bot itself.
type Deps struct {
	Engine *skullboard.Engine
	Auth   *utils.Auth
	// EventTimeout bounds one run of the repost pipeline.
	EventTimeout time.Duration
}

// Register all handlers to the bot.
func Register(b *bot.Bot, deps Deps) {
	if deps.EventTimeout <= 0 {
		deps.EventTimeout = 3 * time.Minute
	}

	b.Session.AddHandler(InteractionCreate(b, deps))
	b.Session.AddHandler(ReactionAdd(deps))

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		utils.Logger.Info("logged in", zap.String("user", s.State.User.Username), zap.Int("guilds", len(r.Guilds)))
	})
}
