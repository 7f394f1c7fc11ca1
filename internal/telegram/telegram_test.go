package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/conversation"
	"github.com/set-night/carlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent      []*bot.SendMessageParams
	edits     []*bot.EditMessageTextParams
	cleared   []int
	documents []*bot.SendDocumentParams
	uploaded  []byte

	// rejectHTML fails every HTML-mode call, as Telegram does on bad markup.
	rejectHTML bool
	fail       error
}

func (f *fakeAPI) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	cp := *p
	f.sent = append(f.sent, &cp)
	if f.fail != nil {
		return nil, f.fail
	}
	if f.rejectHTML && p.ParseMode == models.ParseModeHTML {
		return nil, errors.New("bad request: can't parse entities")
	}
	return &models.Message{}, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, p *bot.EditMessageTextParams) (*models.Message, error) {
	cp := *p
	f.edits = append(f.edits, &cp)
	if f.rejectHTML && p.ParseMode == models.ParseModeHTML {
		return nil, errors.New("bad request: can't parse entities")
	}
	return &models.Message{}, nil
}

func (f *fakeAPI) EditMessageReplyMarkup(_ context.Context, p *bot.EditMessageReplyMarkupParams) (*models.Message, error) {
	f.cleared = append(f.cleared, p.MessageID)
	return &models.Message{}, nil
}

func (f *fakeAPI) SendDocument(_ context.Context, p *bot.SendDocumentParams) (*models.Message, error) {
	f.documents = append(f.documents, p)
	if up, ok := p.Document.(*models.InputFileUpload); ok {
		f.uploaded, _ = io.ReadAll(up.Data)
	}
	return &models.Message{}, nil
}

func (f *fakeAPI) AnswerCallbackQuery(context.Context, *bot.AnswerCallbackQueryParams) (bool, error) {
	return true, nil
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))

	text := strings.Repeat("line\n", 10)
	parts := SplitMessage(text, 12)
	assert.Equal(t, text, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 12)
		assert.True(t, strings.HasSuffix(p, "\n"), "split at newline: %q", p)
	}

	runes := strings.Repeat("é", 25)
	parts = SplitMessage(runes, 10)
	assert.Len(t, parts, 3)
	assert.Equal(t, runes, strings.Join(parts, ""))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "⏰ Reminder: Oil & filter", PlainText("⏰ <b>Reminder</b>: Oil &amp; filter"))
	assert.Equal(t, "no markup", PlainText("no markup"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdefgh", 5))
}

func TestSendHTML(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api)

	require.NoError(t, s.SendHTML(context.Background(), 7, "<b>hi</b>"))
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(7), api.sent[0].ChatID)
	assert.Equal(t, models.ParseModeHTML, api.sent[0].ParseMode)
}

func TestSendHTMLFallsBackToPlainText(t *testing.T) {
	api := &fakeAPI{rejectHTML: true}
	s := NewSender(api)

	require.NoError(t, s.SendHTML(context.Background(), 7, "<b>Oil &amp; filter</b>"))
	require.Len(t, api.sent, 2)
	assert.Equal(t, models.ParseMode(""), api.sent[1].ParseMode)
	assert.Equal(t, "Oil & filter", api.sent[1].Text)
}

func TestSendHTMLReportsFailure(t *testing.T) {
	api := &fakeAPI{fail: errors.New("forbidden: bot was blocked by the user")}
	err := NewSender(api).SendHTML(context.Background(), 7, "hi")
	assert.ErrorIs(t, err, api.fail)
}

func TestSendLongMessageMarkupOnLastPart(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api)
	text := strings.Repeat(strings.Repeat("x", 99)+"\n", 60)

	require.NoError(t, s.SendLongMessage(context.Background(), 7, text, MainMenu()))
	require.Len(t, api.sent, 2)
	assert.Nil(t, api.sent[0].ReplyMarkup)
	assert.NotNil(t, api.sent[1].ReplyMarkup)
}

func TestEditMessageFallsBack(t *testing.T) {
	api := &fakeAPI{rejectHTML: true}
	s := NewSender(api)

	require.NoError(t, s.EditMessage(context.Background(), 7, 3, "<i>x</i>", nil))
	require.Len(t, api.edits, 2)
	assert.Equal(t, "x", api.edits[1].Text)
}

func TestClearButtons(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, NewSender(api).ClearButtons(context.Background(), 7, 12))
	assert.Equal(t, []int{12}, api.cleared)
}

func TestSendDocument(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api)

	require.NoError(t, s.SendDocument(context.Background(), 7, "export.zip", []byte("PK"), "Your data"))
	require.Len(t, api.documents, 1)
	assert.Equal(t, []byte("PK"), api.uploaded)
}

func TestChoicesKeyboard(t *testing.T) {
	assert.Nil(t, ChoicesKeyboard(nil))

	kb := ChoicesKeyboard([]conversation.Choice{
		{Label: "Panda", Token: domain.Action{Kind: domain.ActionOdometerVehicle, ID: 3}.Token()},
		{Label: "Cancel", Token: "cancel"},
	})
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "kmv:3", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "cancel", kb.InlineKeyboard[1][0].CallbackData)
}

func TestLogger(t *testing.T) {
	api := &fakeAPI{}
	disabled := NewLogger(NewSender(api), 0)
	disabled.LogError(errors.New("x"), "y")
	assert.Empty(t, api.sent)

	l := NewLogger(NewSender(api), -100)
	l.LogError(errors.New("<nil pointer>"), "sweep")
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(-100), api.sent[0].ChatID)
	assert.Contains(t, api.sent[0].Text, "&lt;nil pointer&gt;")

	l.LogRegistration(&domain.User{ID: 1, ChatID: 2})
	l.LogReminderFired(domain.ReminderDue{Reminder: domain.Reminder{ID: 5, Kind: domain.ReminderKm}, ChatID: 2})
	assert.Len(t, api.sent, 3)
}
