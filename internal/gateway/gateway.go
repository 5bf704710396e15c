// Package gateway binds a Discord session to the telemetry core: it receives
// voice presence and message events for one guild, filters out bot senders,
// and exposes the live member roster for reconciliation.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rollcallhq/rollcall/internal/config"
	"github.com/rollcallhq/rollcall/internal/identity"
	"github.com/rollcallhq/rollcall/internal/telemetry"
)

const rosterPageSize = 1000

// Sink consumes the domain events the gateway produces.
type Sink interface {
	HandlePresence(ev telemetry.PresenceChange)
	HandleMessage(ev telemetry.Message)
}

// Gateway owns the Discord session for one guild.
type Gateway struct {
	session *discordgo.Session
	guildID string
	sink    Sink
	logger  *slog.Logger
}

// New creates the gateway and registers its event handlers. The session is
// not opened until Start.
func New(log *slog.Logger, cfg config.DiscordConfig, sink Sink) (*Gateway, error) {
	if log == nil {
		log = slog.Default()
	}
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" {
		return nil, fmt.Errorf("discord bot token is required")
	}
	guildID := strings.TrimSpace(cfg.GuildID)
	if guildID == "" {
		return nil, fmt.Errorf("discord guild id is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages

	g := &Gateway{
		session: session,
		guildID: guildID,
		sink:    sink,
		logger:  log.With(slog.String("service", "gateway")),
	}
	session.AddHandler(g.onVoiceStateUpdate)
	session.AddHandler(g.onMessageCreate)
	return g, nil
}

// Start opens the websocket connection. An authentication failure here is
// unrecoverable and must abort the process.
func (g *Gateway) Start() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	g.logger.Info("discord gateway connected", slog.String("guild_id", g.guildID))
	return nil
}

// Stop closes the websocket connection.
func (g *Gateway) Stop() error {
	return g.session.Close()
}

// Roster fetches the current guild member list page by page and returns it as
// platform identity snapshots, bots included (callers filter as needed).
func (g *Gateway) Roster(ctx context.Context) ([]identity.PlatformIdentity, error) {
	var (
		roster []identity.PlatformIdentity
		after  string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := g.session.GuildMembers(g.guildID, after, rosterPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("fetch guild members: %w", err)
		}
		for _, m := range page {
			if id, ok := memberIdentity(m); ok {
				roster = append(roster, id)
			}
		}
		if len(page) < rosterPageSize {
			return roster, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (g *Gateway) onVoiceStateUpdate(s *discordgo.Session, ev *discordgo.VoiceStateUpdate) {
	if ev == nil || ev.VoiceState == nil || ev.GuildID != g.guildID {
		return
	}

	member := ev.Member
	if member == nil || member.User == nil {
		if cached, err := s.State.Member(ev.GuildID, ev.UserID); err == nil {
			member = cached
		}
	}
	if member == nil || member.User == nil {
		g.logger.Warn("voice state update without member payload", slog.String("user_id", ev.UserID))
		return
	}
	if member.User.Bot {
		return
	}

	var fromChannel string
	if ev.BeforeUpdate != nil {
		fromChannel = ev.BeforeUpdate.ChannelID
	}
	if fromChannel == ev.ChannelID {
		// Mute, deafen, or stream flags changed; no channel transition.
		return
	}

	id, _ := memberIdentity(member)
	g.sink.HandlePresence(telemetry.PresenceChange{
		Identity:        id,
		FromChannelID:   fromChannel,
		FromChannelName: g.channelName(fromChannel),
		ToChannelID:     ev.ChannelID,
		ToChannelName:   g.channelName(ev.ChannelID),
		At:              time.Now().UTC(),
	})
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, ev *discordgo.MessageCreate) {
	if ev == nil || ev.Message == nil || ev.GuildID != g.guildID {
		return
	}
	if ev.Author == nil {
		g.logger.Warn("message event without author", slog.String("message_id", ev.ID))
		return
	}
	if ev.Author.Bot || ev.WebhookID != "" {
		return
	}

	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	g.sink.HandleMessage(telemetry.Message{
		Identity:    messageIdentity(ev),
		ChannelID:   ev.ChannelID,
		ChannelName: g.channelName(ev.ChannelID),
		At:          at.UTC(),
	})
}

// channelName resolves a channel id through the session state cache, falling
// back to the REST API on a cold cache. An empty name is acceptable.
func (g *Gateway) channelName(channelID string) string {
	if channelID == "" {
		return ""
	}
	if ch, err := g.session.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := g.session.Channel(channelID)
	if err != nil {
		g.logger.Debug("channel name lookup failed", slog.String("channel_id", channelID), slog.Any("error", err))
		return ""
	}
	return ch.Name
}

func memberIdentity(m *discordgo.Member) (identity.PlatformIdentity, bool) {
	if m == nil || m.User == nil {
		return identity.PlatformIdentity{}, false
	}
	display := m.Nick
	if display == "" {
		display = m.User.GlobalName
	}
	return identity.PlatformIdentity{
		ID:          m.User.ID,
		Username:    m.User.Username,
		DisplayName: display,
		Roles:       m.Roles,
		JoinedAt:    m.JoinedAt,
		IsBot:       m.User.Bot,
	}, true
}

func messageIdentity(ev *discordgo.MessageCreate) identity.PlatformIdentity {
	id := identity.PlatformIdentity{
		ID:       ev.Author.ID,
		Username: ev.Author.Username,
		IsBot:    ev.Author.Bot,
	}
	id.DisplayName = ev.Author.GlobalName
	if ev.Member != nil {
		if ev.Member.Nick != "" {
			id.DisplayName = ev.Member.Nick
		}
		id.Roles = ev.Member.Roles
	}
	return id
}
