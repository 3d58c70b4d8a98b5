package bot

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isomero/internal/calendar"
	"isomero/internal/hours"
	"isomero/internal/model"
	"isomero/internal/store"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "isomero_bot"}
}

func (f *fakeTelegram) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	return msg.Text
}

// Thursday 2026-10-15, 14:00.
var testNow = time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)

func newTestBot(t *testing.T, loaded bool) (*Bot, *fakeTelegram) {
	t.Helper()
	holder := store.NewHolder()
	if loaded {
		holder.Swap(store.NewSnapshot("test", nil, []model.WeeklySchedule{
			{Location: model.LocationGishushu, DayOfWeek: model.Thursday, IsOpen: true, OpenTime: "08:00", CloseTime: "20:00", SpecialCloseTime: "15:00"},
			{Location: model.LocationMasoro, DayOfWeek: model.Sunday, IsOpen: true, OpenTime: "09:00", CloseTime: "17:00"},
		}, []model.ClosureException{
			{Date: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), ClosedAllDay: true, Reason: "Graduation"},
		}, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)))
	}

	logger := zerolog.New(io.Discard)
	tg := newFakeTelegram()
	names := map[model.Location]string{model.LocationGishushu: "Gishushu Main Library"}
	b, err := newBot(tg, holder, hours.NewResolver(logger), Options{
		LocationName: func(loc model.Location) string { return names[loc] },
	}, &logger)
	require.NoError(t, err)
	b.now = func() time.Time { return testNow }
	return b, tg
}

func message(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, From: &tgbotapi.User{ID: chatID}, Text: text}
}

func TestStatusCommand(t *testing.T) {
	b, tg := newTestBot(t, true)

	b.handleMessage(context.Background(), message(1, "/status"))
	text := tg.lastText(t)
	assert.Contains(t, text, "🟢 Gishushu Main Library is open now")
	assert.Contains(t, text, "Closes at 3:00 PM (closing soon)")
	assert.Contains(t, text, "Today: 8:00 AM – 3:00 PM")
}

func TestLocationSwitchAffectsStatus(t *testing.T) {
	b, tg := newTestBot(t, true)

	b.handleMessage(context.Background(), message(1, "/location masoro"))
	assert.Equal(t, "Location set to MASORO.", tg.lastText(t))

	b.handleMessage(context.Background(), message(1, "🕘 Open now?"))
	text := tg.lastText(t)
	assert.Contains(t, text, "🔴 MASORO is closed")
	assert.Contains(t, text, "Opens Sun 18 Oct at 9:00 AM")

	// Other chats keep the default.
	b.handleMessage(context.Background(), message(2, "/status"))
	assert.Contains(t, tg.lastText(t), "Gishushu Main Library")

	b.handleMessage(context.Background(), message(1, "/location NOWHERE"))
	assert.Equal(t, `Unknown location "NOWHERE".`, tg.lastText(t))
}

func TestTodayAndDayCallback(t *testing.T) {
	b, tg := newTestBot(t, true)

	b.handleMessage(context.Background(), message(1, "/today"))
	text := tg.lastText(t)
	assert.Contains(t, text, "Thursday 15 October 2026")
	assert.Contains(t, text, "8:00 AM – 3:00 PM (special hours)")

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID: "cb", Data: "day:2026-10-19", Message: message(1, ""),
	})
	text = tg.lastText(t)
	assert.Contains(t, text, "Closed")
	assert.Contains(t, text, "Graduation")
}

func TestCalendarCommand(t *testing.T) {
	b, tg := newTestBot(t, true)

	b.handleMessage(context.Background(), message(1, "/calendar@isomero_bot 2026-10"))
	tg.mu.Lock()
	msg, ok := tg.sent[len(tg.sent)-1].(tgbotapi.MessageConfig)
	tg.mu.Unlock()
	require.True(t, ok)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, calendar.Weeks+3)
	assert.Equal(t, "October 2026", markup.InlineKeyboard[0][0].Text)

	// Row 2 is the first week: Sep 27 .. Oct 3.
	assert.Equal(t, " ", markup.InlineKeyboard[2][0].Text)
	assert.Equal(t, "1", markup.InlineKeyboard[2][4].Text)
	// Oct 15 is today and has special hours.
	assert.Equal(t, "[15*]", markup.InlineKeyboard[4][4].Text)
	assert.Equal(t, "day:2026-10-15", *markup.InlineKeyboard[4][4].CallbackData)
	// Oct 17 has no schedule.
	assert.Equal(t, "17✖", markup.InlineKeyboard[4][6].Text)

	nav := markup.InlineKeyboard[len(markup.InlineKeyboard)-1]
	assert.Equal(t, "cal:2026-09", *nav[0].CallbackData)
	assert.Equal(t, "cal:2026-11", *nav[2].CallbackData)
}

func TestCalendarCallbackEditsMessage(t *testing.T) {
	b, tg := newTestBot(t, true)
	msg := message(1, "")
	msg.MessageID = 42

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "cb", Data: "cal:2026-11", Message: msg})

	tg.mu.Lock()
	defer tg.mu.Unlock()
	require.Len(t, tg.requests, 2)
	edit, ok := tg.requests[1].(tgbotapi.EditMessageReplyMarkupConfig)
	require.True(t, ok)
	assert.Equal(t, 42, edit.MessageID)
	assert.Equal(t, "November 2026", edit.ReplyMarkup.InlineKeyboard[0][0].Text)
}

func TestCalendarOutOfRange(t *testing.T) {
	b, tg := newTestBot(t, true)
	b.handleMessage(context.Background(), message(1, "/calendar 2030-01"))
	assert.Equal(t, "That month is too far away.", tg.lastText(t))

	b.handleMessage(context.Background(), message(1, "/calendar soon"))
	assert.Equal(t, "Month must look like 2026-10.", tg.lastText(t))
}

func TestRequestsOutsideLoadedWindow(t *testing.T) {
	b, tg := newTestBot(t, true)
	const want = "No schedule is loaded for that period. Available: 2026-08-20 to 2027-01-31."

	for _, day := range []string{"day:2026-08-19", "day:2027-02-01"} {
		b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "cb", Data: day, Message: message(1, "")})
		assert.Equal(t, want, tg.lastText(t), day)
	}

	b.handleCallback(context.Background(), &tgbotapi.CallbackQuery{ID: "cb", Data: "day:2027-01-31", Message: message(1, "")})
	assert.Contains(t, tg.lastText(t), "Sunday 31 January 2027")

	// August's grid starts 2026-07-26; January's ends 2027-02-06.
	for _, month := range []string{"2026-08", "2027-01"} {
		b.handleMessage(context.Background(), message(1, "/calendar "+month))
		assert.Equal(t, want, tg.lastText(t), month)
	}
}

func TestCalendarNavigationStopsAtLoadedWindow(t *testing.T) {
	b, tg := newTestBot(t, true)

	navFor := func(month string) []tgbotapi.InlineKeyboardButton {
		b.handleMessage(context.Background(), message(1, "/calendar "+month))
		tg.mu.Lock()
		defer tg.mu.Unlock()
		msg, ok := tg.sent[len(tg.sent)-1].(tgbotapi.MessageConfig)
		require.True(t, ok, month)
		markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		require.True(t, ok, month)
		return markup.InlineKeyboard[len(markup.InlineKeyboard)-1]
	}

	nav := navFor("2026-09")
	assert.Equal(t, "noop", *nav[0].CallbackData)
	assert.Equal(t, "cal:2026-10", *nav[2].CallbackData)

	nav = navFor("2026-12")
	assert.Equal(t, "cal:2026-11", *nav[0].CallbackData)
	assert.Equal(t, "noop", *nav[2].CallbackData)
}

func TestLocationNameReadPerReply(t *testing.T) {
	b, tg := newTestBot(t, true)
	name := "Gishushu Main Library"
	b.opts.LocationName = func(model.Location) string { return name }

	b.handleMessage(context.Background(), message(1, "/status"))
	assert.Contains(t, tg.lastText(t), "Gishushu Main Library")

	name = "Gishushu Learning Centre"
	b.handleMessage(context.Background(), message(1, "/status"))
	assert.Contains(t, tg.lastText(t), "Gishushu Learning Centre")
}

func TestNoSnapshotReply(t *testing.T) {
	b, tg := newTestBot(t, false)
	b.handleMessage(context.Background(), message(1, "/status"))
	assert.Equal(t, "Schedule data is not loaded yet, please try again shortly.", tg.lastText(t))
}

func TestGenerateCalendarKeyboard_NavigationBounds(t *testing.T) {
	ym := calendar.YearMonth{Year: 2026, Month: time.October}
	views := make([]model.DayView, calendar.GridDays)
	kb := GenerateCalendarKeyboard(ym, views, ym, ym)

	nav := kb.InlineKeyboard[len(kb.InlineKeyboard)-1]
	assert.Equal(t, "noop", *nav[0].CallbackData)
	assert.Equal(t, "cal:today", *nav[1].CallbackData)
	assert.Equal(t, "noop", *nav[2].CallbackData)
}

func TestSplitCommand(t *testing.T) {
	cmd, arg := splitCommand("/Calendar@isomero_bot 2026-10")
	assert.Equal(t, "/calendar", cmd)
	assert.Equal(t, "2026-10", arg)

	cmd, arg = splitCommand("hello")
	assert.Empty(t, cmd)
	assert.Empty(t, arg)
}

func TestStartStopsOnContext(t *testing.T) {
	b, tg := newTestBot(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()

	tg.updates <- tgbotapi.Update{Message: message(7, "/help")}
	assert.Eventually(t, func() bool {
		tg.mu.Lock()
		defer tg.mu.Unlock()
		return len(tg.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
}
