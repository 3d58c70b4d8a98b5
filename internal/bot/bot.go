// Package bot answers "is the library open?" questions over Telegram.
// It is read-only: every reply is resolved from the current snapshot.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"isomero/internal/calendar"
	"isomero/internal/hours"
	"isomero/internal/livestatus"
	"isomero/internal/metrics"
	"isomero/internal/model"
	"isomero/internal/store"
)

// MaxMonthOffset bounds calendar navigation around the current month.
const MaxMonthOffset = 24

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Options configures the bot.
type Options struct {
	DefaultLocation model.Location
	// LocationName returns the display name of a site; it is consulted on
	// every reply. Codes are shown when it is nil or returns "".
	LocationName func(model.Location) string
	TimeLocation *time.Location
}

type Bot struct {
	tg       telegramClient
	holder   *store.Holder
	resolver *hours.Resolver
	builder  *calendar.Builder
	live     *livestatus.Service
	opts     Options
	state    *stateStore
	logger   *zerolog.Logger
	now      func() time.Time
}

func New(token string, debug bool, holder *store.Holder, resolver *hours.Resolver, opts Options, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return newBot(&realTelegramClient{api: api}, holder, resolver, opts, logger)
}

func newBot(tg telegramClient, holder *store.Holder, resolver *hours.Resolver, opts Options, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if opts.DefaultLocation == "" {
		opts.DefaultLocation = model.LocationGishushu
	}
	if opts.TimeLocation == nil {
		opts.TimeLocation = time.UTC
	}
	return &Bot{
		tg:       tg,
		holder:   holder,
		resolver: resolver,
		builder:  calendar.NewBuilder(resolver),
		live:     livestatus.NewService(resolver),
		opts:     opts,
		state:    newStateStore(opts.DefaultLocation),
		logger:   logger,
		now:      time.Now,
	}, nil
}

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("🕘 Open now?"),
		tgbotapi.NewKeyboardButton("📅 Calendar"),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("📆 Today"),
		tgbotapi.NewKeyboardButton("📍 Location"),
	),
)

const helpText = `Commands:
/status - is the library open right now
/today - today's opening hours
/calendar [YYYY-MM] - month calendar (✖ closed, * special hours)
/location [CODE] - switch library location
/help - this message`

// Start begins polling updates and handles commands.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("chat_id", update.Message.Chat.ID).
			Str("text", update.Message.Text).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	cmd, arg := splitCommand(text)

	switch {
	case cmd == "/start":
		metrics.IncBotCommand("start")
		b.state.reset(chatID)
		reply := tgbotapi.NewMessage(chatID, "Welcome! Ask me whether the library is open.\n\n"+helpText)
		reply.ReplyMarkup = mainMenu
		b.send(ctx, reply)
	case cmd == "/help":
		metrics.IncBotCommand("help")
		b.reply(ctx, chatID, helpText)
	case cmd == "/status" || text == "🕘 Open now?":
		metrics.IncBotCommand("status")
		b.sendStatus(ctx, chatID)
	case cmd == "/today" || text == "📆 Today":
		metrics.IncBotCommand("today")
		b.sendDay(ctx, chatID, b.today())
	case cmd == "/calendar" || text == "📅 Calendar":
		metrics.IncBotCommand("calendar")
		ym := calendar.MonthOf(b.today())
		if arg != "" {
			parsed, err := calendar.ParseYearMonth(arg)
			if err != nil {
				b.reply(ctx, chatID, "Month must look like 2026-10.")
				return
			}
			ym = parsed
		}
		b.sendCalendar(ctx, chatID, ym)
	case cmd == "/location" || text == "📍 Location":
		metrics.IncBotCommand("location")
		if arg == "" {
			b.sendLocationPicker(ctx, chatID)
			return
		}
		b.switchLocation(ctx, chatID, arg)
	case strings.HasPrefix(text, "/"):
		b.reply(ctx, chatID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	b.answerCallback(ctx, cq.ID)

	data := cq.Data
	chatID := cq.Message.Chat.ID
	switch {
	case data == "noop":
	case strings.HasPrefix(data, "cal:"):
		arg := strings.TrimPrefix(data, "cal:")
		ym := calendar.MonthOf(b.today())
		if arg != "today" {
			parsed, err := calendar.ParseYearMonth(arg)
			if err != nil {
				return
			}
			ym = parsed
		}
		b.editCalendar(ctx, chatID, cq.Message.MessageID, ym)
	case strings.HasPrefix(data, "day:"):
		date, err := model.ParseDate(strings.TrimPrefix(data, "day:"), b.opts.TimeLocation)
		if err != nil {
			return
		}
		b.sendDay(ctx, chatID, date)
	case strings.HasPrefix(data, "loc:"):
		b.switchLocation(ctx, chatID, strings.TrimPrefix(data, "loc:"))
	}
}

func (b *Bot) sendStatus(ctx context.Context, chatID int64) {
	snap, loc, ok := b.snapshot(ctx, chatID)
	if !ok {
		return
	}
	now := b.today()
	live := b.live.Compute(now, loc, snap.Schedules, snap.Exceptions)
	today := b.resolver.ResolveDay(now, loc, snap.Schedules, snap.Exceptions)
	b.reply(ctx, chatID, formatStatus(b.locationName(loc), live, today, now))
}

func (b *Bot) sendDay(ctx context.Context, chatID int64, date time.Time) {
	snap, loc, ok := b.snapshot(ctx, chatID)
	if !ok {
		return
	}
	if !snap.Covers(date) {
		b.reply(ctx, chatID, outsideWindowText(snap))
		return
	}
	st := b.resolver.ResolveDay(date, loc, snap.Schedules, snap.Exceptions)
	b.reply(ctx, chatID, formatDay(b.locationName(loc), st))
}

func (b *Bot) sendCalendar(ctx context.Context, chatID int64, ym calendar.YearMonth) {
	markup, ok := b.calendarMarkup(ctx, chatID, ym)
	if !ok {
		return
	}
	msg := tgbotapi.NewMessage(chatID, b.calendarTitle(chatID))
	msg.ReplyMarkup = markup
	b.send(ctx, msg)
}

func (b *Bot) editCalendar(ctx context.Context, chatID int64, messageID int, ym calendar.YearMonth) {
	markup, ok := b.calendarMarkup(ctx, chatID, ym)
	if !ok {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup)
	if _, err := b.tg.Request(edit); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to edit calendar")
	}
}

func (b *Bot) calendarMarkup(ctx context.Context, chatID int64, ym calendar.YearMonth) (tgbotapi.InlineKeyboardMarkup, bool) {
	current := calendar.MonthOf(b.today())
	if off := current.MonthsUntil(ym); off > MaxMonthOffset || off < -MaxMonthOffset {
		b.reply(ctx, chatID, "That month is too far away.")
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	snap, loc, ok := b.snapshot(ctx, chatID)
	if !ok {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	if from, to := ym.GridRange(b.opts.TimeLocation); !snap.CoversRange(from, to) {
		b.reply(ctx, chatID, outsideWindowText(snap))
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	minMonth, maxMonth := calendar.Bounds(current, MaxMonthOffset, b.opts.TimeLocation, snap.CoversRange)
	views := b.builder.BuildMonth(ym, loc, snap.Schedules, snap.Exceptions, b.today())
	return GenerateCalendarKeyboard(ym, views, minMonth, maxMonth), true
}

func outsideWindowText(snap *store.Snapshot) string {
	return fmt.Sprintf("No schedule is loaded for that period. Available: %s.", snap.Window())
}

func (b *Bot) calendarTitle(chatID int64) string {
	return fmt.Sprintf("Opening calendar for %s. Tap a day for details.", b.locationName(b.state.location(chatID)))
}

func (b *Bot) sendLocationPicker(ctx context.Context, chatID int64) {
	snap, err := b.holder.Current()
	if err != nil {
		b.reply(ctx, chatID, "Schedule data is not loaded yet, please try again shortly.")
		return
	}
	current := b.state.location(chatID)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(snap.Locations))
	for _, loc := range snap.Locations {
		label := b.locationName(loc)
		if loc == current {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "loc:"+loc.String()),
		))
	}
	msg := tgbotapi.NewMessage(chatID, "Choose a location:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(ctx, msg)
}

func (b *Bot) switchLocation(ctx context.Context, chatID int64, raw string) {
	snap, err := b.holder.Current()
	if err != nil {
		b.reply(ctx, chatID, "Schedule data is not loaded yet, please try again shortly.")
		return
	}
	loc, ok := model.ParseLocation(raw)
	if !ok || !snap.HasLocation(loc) {
		b.reply(ctx, chatID, fmt.Sprintf("Unknown location %q.", raw))
		return
	}
	b.state.setLocation(chatID, loc)
	b.reply(ctx, chatID, fmt.Sprintf("Location set to %s.", b.locationName(loc)))
}

// snapshot returns the current snapshot and the chat's location, replying
// with an apology when no data is loaded yet.
func (b *Bot) snapshot(ctx context.Context, chatID int64) (*store.Snapshot, model.Location, bool) {
	snap, err := b.holder.Current()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Bot request before first snapshot")
		b.reply(ctx, chatID, "Schedule data is not loaded yet, please try again shortly.")
		return nil, "", false
	}
	return snap, b.state.location(chatID), true
}

func (b *Bot) locationName(loc model.Location) string {
	if b.opts.LocationName != nil {
		if name := b.opts.LocationName(loc); name != "" {
			return name
		}
	}
	return loc.String()
}

func (b *Bot) today() time.Time {
	return b.now().In(b.opts.TimeLocation)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(ctx context.Context, msg tgbotapi.Chattable) {
	if _, err := b.tg.Send(msg); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send message")
	}
}

func (b *Bot) answerCallback(ctx context.Context, id string) {
	if _, err := b.tg.Request(tgbotapi.NewCallback(id, "")); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Failed to answer callback")
	}
}

// splitCommand splits "/calendar@isomero_bot 2026-10" into "/calendar" and "2026-10".
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, strings.Join(fields[1:], " ")
}
