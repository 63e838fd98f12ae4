package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot implements Client on top of the Telegram Bot API long-polling transport.
type Bot struct {
	api       botAPI
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the platform with the given credential token and verifies
// it is authorized. It is the ClientFactory used by the forwarder.
func Dial(token string) (Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	return &Bot{api: api, done: make(chan struct{})}, nil
}

// ResolveChat resolves a numeric chat ID or @username to the platform chat ID.
func (b *Bot) ResolveChat(_ context.Context, ref string) (int64, error) {
	cc := tgbotapi.ChatConfig{}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		cc.ChatID = id
	} else {
		username := ref
		if !strings.HasPrefix(username, "@") {
			username = "@" + username
		}
		cc.SuperGroupUsername = username
	}

	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: cc})
	if err != nil {
		return 0, fmt.Errorf("resolve chat %q: %w", ref, err)
	}
	return chat.ID, nil
}

// Subscribe starts long polling and emits every new message in chatID.
func (b *Bot) Subscribe(chatID int64) <-chan Event {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	events := make(chan Event)

	go func() {
		defer close(events)
		for update := range updates {
			msg := update.Message
			if msg == nil {
				msg = update.ChannelPost
			}
			if msg == nil || msg.Chat == nil || msg.Chat.ID != chatID {
				continue
			}
			select {
			case events <- eventFromMessage(msg):
			case <-b.done:
				return
			}
		}
	}()

	return events
}

// Forward re-sends the message verbatim to the destination chat.
func (b *Bot) Forward(_ context.Context, destChatID, srcChatID int64, messageID int) error {
	if _, err := b.api.Send(tgbotapi.NewForward(destChatID, srcChatID, messageID)); err != nil {
		return fmt.Errorf("forward message %d: %w", messageID, err)
	}
	return nil
}

// Close stops long polling, which closes any Subscribe channel.
func (b *Bot) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.api.StopReceivingUpdates()
	})
}

func eventFromMessage(msg *tgbotapi.Message) Event {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	hasMedia, mediaType := mediaKind(msg)
	return Event{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		Text:      text,
		HasMedia:  hasMedia,
		MediaType: mediaType,
	}
}

func mediaKind(msg *tgbotapi.Message) (bool, string) {
	switch {
	case len(msg.Photo) > 0:
		return true, "photo"
	case msg.Video != nil:
		return true, "video"
	case msg.Animation != nil:
		return true, "animation"
	case msg.Document != nil:
		return true, "document"
	case msg.Audio != nil:
		return true, "audio"
	case msg.Voice != nil:
		return true, "voice"
	case msg.VideoNote != nil:
		return true, "video_note"
	case msg.Sticker != nil:
		return true, "sticker"
	}
	return false, ""
}
