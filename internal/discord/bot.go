// Package discord binds the perm command surface to Discord guild messages.
// The dispatch framework proper is the host registry; this adapter only
// parses "<prefix>perm ..." messages, enforces the administrator gate and
// relays the plain-text reply.
package discord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-warden/internal/perm"
)

// Discord caps message length at 2000 characters.
const maxMessageLen = 2000

// Bot is the Discord chat adapter.
type Bot struct {
	dg     *discordgo.Session
	perm   *perm.Command
	prefix string
}

// StartBot connects to Discord and blocks until ctx is cancelled.
func StartBot(ctx context.Context, token, prefix string, permCmd *perm.Command) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{dg: dg, perm: permCmd, prefix: prefix}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received, closing Discord session...")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	log.Printf("[INFO] Logged in as %s", s.State.User.Username)
}

// onMessageCreate handles one incoming guild message.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.GuildID == "" {
		return
	}

	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(content, b.prefix))
	if len(fields) == 0 || fields[0] != "perm" {
		return
	}

	if !b.isAdmin(s, m) {
		b.reply(s, m.ChannelID, "This command requires the Administrator permission.")
		return
	}

	reply := b.perm.Execute(context.Background(), fields[1:])
	b.reply(s, m.ChannelID, reply)
}

// isAdmin checks the author's effective channel permissions.
func (b *Bot) isAdmin(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		log.Printf("[WARN] Failed to get user permissions: %v", err)
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

// reply sends text, splitting on the message length cap.
func (b *Bot) reply(s *discordgo.Session, channelID, text string) {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			log.Printf("[ERR] Failed to send message: %v", err)
			return
		}
	}
}

// splitMessage breaks text into chunks of at most limit characters, preferring
// line boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			// Never cut a multi-byte rune in half.
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, flush(&current), line[:cut])
			line = line[cut:]
		}
		if current.Len()+len(line)+1 > limit {
			chunks = append(chunks, flush(&current))
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func flush(b *strings.Builder) string {
	s := b.String()
	b.Reset()
	return s
}
