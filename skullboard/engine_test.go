package skullboard

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"skullboard/database"
	"skullboard/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   = "100"
	testChannel = "110"
	testMessage = "120"
	testDest    = "130"
	testParent  = "140"
)

type engineFixture struct {
	engine   *Engine
	platform *MockPlatform
	renderer *MockRenderer
	store    *database.Store
	dest     *mock.Call
}

func sourceMessage(count int) *discordgo.Message {
	return &discordgo.Message{
		ID:        testMessage,
		ChannelID: testChannel,
		Content:   "look at this",
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Reactions: []*discordgo.MessageReactions{
			{Count: 1, Emoji: &discordgo.Emoji{Name: "👍"}},
			{Count: count, Emoji: &discordgo.Emoji{Name: models.DefaultGlyph}},
		},
	}
}

func newEngineFixture(t *testing.T, count int) *engineFixture {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "skullboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := database.NewStore(db)

	dest := testDest
	require.NoError(t, store.UpsertGuildConfig(context.Background(), &models.GuildConfig{
		GuildID:              testGuild,
		DestinationChannelID: &dest,
		Threshold:            3,
		Glyph:                models.DefaultGlyph,
	}))

	p := &MockPlatform{}
	p.On("Message", mock.Anything, testChannel, testMessage).Return(sourceMessage(count), nil)
	p.On("Channel", mock.Anything, testChannel).
		Return(&discordgo.Channel{ID: testChannel, GuildID: testGuild, Name: "general", ParentID: testParent}, nil)
	destCall := p.On("Channel", mock.Anything, testDest).
		Return(&discordgo.Channel{ID: testDest, GuildID: testGuild, Name: "skullboard"}, nil).Maybe()
	p.On("Guild", mock.Anything, testGuild).Return(&discordgo.Guild{ID: testGuild, Name: "Test Guild"}, nil).Maybe()
	p.On("Member", mock.Anything, testGuild, mock.Anything).Return(nil, errors.New("unknown member")).Maybe()
	p.On("PrimaryGuild", mock.Anything, mock.Anything).Return(&PrimaryGuild{}, nil).Maybe()

	r := &MockRenderer{}
	return &engineFixture{
		engine:   NewEngine(p, store, NewAssembler(p, nil), r),
		platform: p,
		renderer: r,
		store:    store,
		dest:     destCall,
	}
}

func skullEvent() ReactionEvent {
	return ReactionEvent{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: testMessage,
		UserID:    "u2",
		Emoji:     discordgo.Emoji{Name: models.DefaultGlyph},
	}
}

func (f *engineFixture) expectRepost() {
	f.renderer.On("Render", mock.Anything, mock.AnythingOfType("*models.RenderDocument")).Return([]byte("png"), nil)
	f.platform.On("Send", mock.Anything, testDest, mock.AnythingOfType("*discordgo.MessageSend")).
		Return(&discordgo.Message{ID: "post1", ChannelID: testDest}, nil)
}

func sentMessage(t *testing.T, p *MockPlatform) *discordgo.MessageSend {
	t.Helper()
	for _, c := range p.Calls {
		if c.Method == "Send" {
			return c.Arguments.Get(2).(*discordgo.MessageSend)
		}
	}
	t.Fatal("nothing was sent")
	return nil
}

func TestEngine_ThresholdReached(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 3)
	f.expectRepost()

	f.engine.OnReactionEvent(ctx, skullEvent())

	f.renderer.AssertNumberOfCalls(t, "Render", 1)
	f.platform.AssertNumberOfCalls(t, "Send", 1)

	rec, err := f.store.FindRepost(ctx, testGuild, testMessage)
	require.NoError(t, err)
	got := rec.MustGet()
	assert.Equal(t, testMessage, got.OriginalMessageID)
	assert.Equal(t, testChannel, got.OriginalChannelID)
	require.NotNil(t, got.RepostMessageID)
	assert.Equal(t, "post1", *got.RepostMessageID)
	assert.Equal(t, 3, got.ReactionCount)

	doc := f.renderer.Calls[0].Arguments.Get(1).(*models.RenderDocument)
	assert.Equal(t, 3, doc.Repost.ReactionCount)
	assert.Equal(t, "https://discord.com/channels/100/110/120", doc.Repost.MessageURL)

	post := sentMessage(t, f.platform)
	require.Len(t, post.Files, 1)
	assert.Equal(t, "skullboard.png", post.Files[0].Name)
	assert.Equal(t, 0xffd700, post.Embeds[0].Color)
	assert.Equal(t, "attachment://skullboard.png", post.Embeds[0].Image.URL)
}

func TestEngine_BelowThreshold(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 2)

	f.engine.OnReactionEvent(ctx, skullEvent())

	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
	rec, err := f.store.FindRepost(ctx, testGuild, testMessage)
	require.NoError(t, err)
	assert.True(t, rec.IsAbsent())
}

func TestEngine_OtherGlyphIgnored(t *testing.T) {
	f := newEngineFixture(t, 5)
	ev := skullEvent()
	ev.Emoji = discordgo.Emoji{Name: "👍"}

	f.engine.OnReactionEvent(context.Background(), ev)

	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestEngine_AlreadyReposted(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 10)
	_, err := f.store.InsertRepost(ctx, &models.RepostRecord{
		GuildID: testGuild, OriginalMessageID: testMessage, OriginalChannelID: testChannel, ReactionCount: 3,
	})
	require.NoError(t, err)

	f.engine.OnReactionEvent(ctx, skullEvent())

	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestEngine_Blacklisted(t *testing.T) {
	for name, entry := range map[string]struct {
		id  string
		typ models.BlacklistType
	}{
		"channel":  {testChannel, models.BlacklistChannel},
		"category": {testParent, models.BlacklistCategory},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newEngineFixture(t, 5)
			require.NoError(t, f.store.AddBlacklistEntry(ctx, testGuild, entry.id, entry.typ))

			f.engine.OnReactionEvent(ctx, skullEvent())

			f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
		})
	}
}

func TestEngine_UnconfiguredGuild(t *testing.T) {
	f := newEngineFixture(t, 5)
	ev := skullEvent()
	ev.GuildID = "999"

	f.engine.OnReactionEvent(context.Background(), ev)

	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestEngine_LockContention(t *testing.T) {
	f := newEngineFixture(t, 5)
	release, ok := f.engine.locks.TryAcquire(lockKey(testGuild, testMessage))
	require.True(t, ok)
	defer release()

	f.engine.OnReactionEvent(context.Background(), skullEvent())

	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestEngine_ConcurrentEvents(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 4)
	f.renderer.On("Render", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
		Return([]byte("png"), nil)
	f.platform.On("Send", mock.Anything, testDest, mock.Anything).Return(&discordgo.Message{ID: "post1"}, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.engine.OnReactionEvent(ctx, skullEvent())
		}()
	}
	wg.Wait()

	f.renderer.AssertNumberOfCalls(t, "Render", 1)
	f.platform.AssertNumberOfCalls(t, "Send", 1)
	rec, err := f.store.FindRepost(ctx, testGuild, testMessage)
	require.NoError(t, err)
	assert.True(t, rec.IsPresent())
	assert.False(t, f.engine.locks.Held(lockKey(testGuild, testMessage)))
}

func TestEngine_RenderFailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 3)
	f.renderer.On("Render", mock.Anything, mock.Anything).Return(nil, errors.New("Screenshot failed"))

	f.engine.OnReactionEvent(ctx, skullEvent())

	f.platform.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	rec, err := f.store.FindRepost(ctx, testGuild, testMessage)
	require.NoError(t, err)
	assert.True(t, rec.IsAbsent())
	assert.False(t, f.engine.locks.Held(lockKey(testGuild, testMessage)))
}

func TestEngine_FetchFailureAborts(t *testing.T) {
	p := &MockPlatform{}
	p.On("Message", mock.Anything, testChannel, testMessage).Return(nil, errors.New("unknown message"))
	r := &MockRenderer{}
	e := NewEngine(p, nil, NewAssembler(p, nil), r)

	assert.NotPanics(t, func() { e.OnReactionEvent(context.Background(), skullEvent()) })
	r.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestEngine_ThreadInBlacklistedCategory(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 5)
	f.platform.On("Message", mock.Anything, "150", testMessage).Return(sourceMessage(5), nil)
	f.platform.On("Channel", mock.Anything, "150").
		Return(&discordgo.Channel{ID: "150", GuildID: testGuild, Type: discordgo.ChannelTypeGuildPublicThread, ParentID: "160"}, nil)
	f.platform.On("Channel", mock.Anything, "160").
		Return(&discordgo.Channel{ID: "160", GuildID: testGuild, ParentID: testParent}, nil)
	require.NoError(t, f.store.AddBlacklistEntry(ctx, testGuild, testParent, models.BlacklistCategory))

	ev := skullEvent()
	ev.ChannelID = "150"
	f.engine.OnReactionEvent(ctx, ev)

	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestEngine_Lineage(t *testing.T) {
	f := newEngineFixture(t, 5)
	f.platform.On("Channel", mock.Anything, "150").
		Return(&discordgo.Channel{ID: "150", Type: discordgo.ChannelTypeGuildPublicThread, ParentID: "160"}, nil)
	f.platform.On("Channel", mock.Anything, "160").
		Return(&discordgo.Channel{ID: "160", ParentID: testParent}, nil)
	f.platform.On("Channel", mock.Anything, "170").Return(nil, errors.New("unknown channel"))

	ctx := context.Background()
	assert.Equal(t, []string{"150", "160", testParent}, f.engine.lineage(ctx, "150"))
	assert.Equal(t, []string{testChannel, testParent}, f.engine.lineage(ctx, testChannel))
	assert.Equal(t, []string{"170"}, f.engine.lineage(ctx, "170"))
}

func TestEngine_DirectMessageSkipsFetch(t *testing.T) {
	p := &MockPlatform{}
	r := &MockRenderer{}
	e := NewEngine(p, nil, NewAssembler(p, nil), r)
	ev := skullEvent()
	ev.GuildID = ""

	e.OnReactionEvent(context.Background(), ev)

	p.AssertNotCalled(t, "Message", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_UnreachableDestinationSkipsRender(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, 5)
	f.dest.Unset()
	f.platform.On("Channel", mock.Anything, testDest).Return(nil, errors.New("missing access"))

	_, err := f.engine.repost(ctx, testGuild, testChannel, testMessage, &models.GuildConfig{
		GuildID: testGuild, DestinationChannelID: ptr(testDest), Threshold: 3, Glyph: models.DefaultGlyph,
	}, 5)
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	f.engine.OnReactionEvent(ctx, skullEvent())

	f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
	f.platform.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	rec, err := f.store.FindRepost(ctx, testGuild, testMessage)
	require.NoError(t, err)
	assert.True(t, rec.IsAbsent())
}

func ptr[T any](v T) *T { return &v }
