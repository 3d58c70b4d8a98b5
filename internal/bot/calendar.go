package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"isomero/internal/calendar"
	"isomero/internal/model"
)

// Cell markers.
const (
	markClosed  = "✖"
	markSpecial = "*"
)

// GenerateCalendarKeyboard renders a month grid as an inline keyboard:
// a title row, a Sunday-first weekday header, six week rows and navigation.
// Cells outside the month are blank; days carry a day:YYYY-MM-DD callback.
func GenerateCalendarKeyboard(ym calendar.YearMonth, views []model.DayView, minMonth, maxMonth calendar.YearMonth) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, calendar.Weeks+3)

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", ym.Month, ym.Year), "noop"),
	})

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"} {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(d, "noop"))
	}
	rows = append(rows, header)

	for _, week := range calendar.SplitWeeks(views) {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for _, v := range week {
			if !v.IsCurrentMonth {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
				continue
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				cellLabel(v),
				"day:"+v.Date.Format(model.DateLayout),
			))
		}
		rows = append(rows, row)
	}

	nav := make([]tgbotapi.InlineKeyboardButton, 0, 3)
	if prev := ym.AddMonths(-1); minMonth.MonthsUntil(prev) >= 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️", "cal:"+prev.String()))
	} else {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
	}
	nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Today", "cal:today"))
	if next := ym.AddMonths(1); next.MonthsUntil(maxMonth) >= 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("▶️", "cal:"+next.String()))
	} else {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(" ", "noop"))
	}
	rows = append(rows, nav)

	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func cellLabel(v model.DayView) string {
	label := fmt.Sprintf("%d", v.Date.Day())
	switch {
	case v.IsClosed:
		label += markClosed
	case v.HasSpecialHours:
		label += markSpecial
	}
	if v.IsToday {
		label = "[" + label + "]"
	}
	return label
}
