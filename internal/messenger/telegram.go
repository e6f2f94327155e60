// Package messenger implements the alert-dispatch adapter. Errors here
// are logged and swallowed; they must never stall the main loop.
package messenger

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "messenger")
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Messenger is the alert capability: broadcast a human-readable message
// to every known chat.
type Messenger interface {
	SendBroadcast(ctx context.Context, message string)
}

// Telegram is the Telegram Bot HTTP API-backed Messenger.
type Telegram struct {
	botURL       string
	seededChatID int64
	http         *http.Client
}

// New constructs a Telegram messenger for the given bot token, seeding
// the chat set with seededChatID.
func New(token string, seededChatID int64) *Telegram {
	return &Telegram{
		botURL:       "https://api.telegram.org/bot" + token + "/",
		seededChatID: seededChatID,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// getChats returns the seeded chat id unioned with every chat id
// discovered via getUpdates.
func (t *Telegram) getChats(ctx context.Context) []int64 {
	chats := map[int64]struct{}{t.seededChatID: {}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.botURL+"getUpdates", nil)
	if err != nil {
		log.WithError(err).Warn("unable to build getUpdates request")
		return keys(chats)
	}
	resp, err := t.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("unable to fetch telegram updates")
		return keys(chats)
	}
	defer resp.Body.Close()

	var body struct {
		Result []struct {
			Message struct {
				Chat struct {
					ID int64 `json:"id"`
				} `json:"chat"`
			} `json:"message"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.WithError(err).Warn("unable to decode telegram updates")
		return keys(chats)
	}
	for _, update := range body.Result {
		chats[update.Message.Chat.ID] = struct{}{}
	}
	return keys(chats)
}

// sendMessage posts message to chatID. The message text is
// percent-encoded before being placed in the request URL, so text
// containing "&" or non-ASCII characters can't corrupt the query
// string.
func (t *Telegram) sendMessage(ctx context.Context, chatID int64, message string) {
	q := url.Values{}
	q.Set("text", message)
	q.Set("chat_id", strconv.FormatInt(chatID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.botURL+"sendMessage?"+q.Encode(), nil)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("unable to build telegram message")
		return
	}
	resp, err := t.http.Do(req)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("unable to send telegram message")
		return
	}
	resp.Body.Close()
}

// SendBroadcast sends message to every known chat.
func (t *Telegram) SendBroadcast(ctx context.Context, message string) {
	for _, chatID := range t.getChats(ctx) {
		t.sendMessage(ctx, chatID, message)
	}
}

func keys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
