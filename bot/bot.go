package bot

import (
	"errors"
	"fmt"

	"skullboard/command"
	"skullboard/config"
	rendergrpc "skullboard/grpc"
	"skullboard/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Commands map[string]command.Command

	settings config.BotSettings
	probe    *rendergrpc.Client
	cron     *cron.Cron
	healthy  *bool
}

// NewBot creates and initializes a new Bot instance. probe reaches the render
// service health endpoint and may be nil.
func NewBot(settings config.BotSettings, probe *rendergrpc.Client) (*Bot, error) {
	if settings.Token == "" {
		return nil, errors.New("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + settings.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	return &Bot{
		Session:  dg,
		Commands: make(map[string]command.Command),
		settings: settings,
		probe:    probe,
	}, nil
}

// RegisterCommands registers the provided commands.
func (b *Bot) RegisterCommands(commands []command.Command) {
	for _, cmd := range commands {
		b.Commands[cmd.Definition().Name] = cmd
	}
}

// Start opens the bot's session and registers handlers.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	utils.InitLogger(b.Session, b.settings.AdminChannelID)

	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", command.Definitions(b.Commands)); err != nil {
		utils.Error("Bot", "RegisterCommands", err.Error())
	}

	if err := b.startScheduler(); err != nil {
		return err
	}

	utils.Logger.Info("bot is running", zap.String("user", b.Session.State.User.Username))
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	b.stopScheduler()
	if b.probe != nil {
		_ = b.probe.Close()
	}
	if b.Session != nil {
		_ = b.Session.Close()
	}
	utils.Logger.Info("bot stopped")
}
