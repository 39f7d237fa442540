package skullboard

import (
	"context"

	"skullboard/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/mock"
)

type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	args := m.Called(ctx, channelID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

func (m *MockPlatform) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Channel), args.Error(1)
}

func (m *MockPlatform) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Guild), args.Error(1)
}

func (m *MockPlatform) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Member), args.Error(1)
}

func (m *MockPlatform) PrimaryGuild(ctx context.Context, userID string) (*PrimaryGuild, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PrimaryGuild), args.Error(1)
}

func (m *MockPlatform) RefreshURLs(ctx context.Context, urls []string) (map[string]string, error) {
	args := m.Called(ctx, urls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockPlatform) Send(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	args := m.Called(ctx, channelID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discordgo.Message), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, doc *models.RenderDocument) ([]byte, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
