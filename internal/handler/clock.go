package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"timeclock/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const defaultShiftLimit = 10

var dayFormats = []string{"02.01.2006", "2006-01-02", "02.01"}

// parseDay reads a calendar day in loc. Day-month dates take the year of now.
func parseDay(s string, now time.Time, loc *time.Location) (time.Time, bool) {
	for _, layout := range dayFormats {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if layout == "02.01" {
			t = time.Date(now.In(loc).Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}
		return t, true
	}
	return time.Time{}, false
}

// parsePunch reads "[date] [time] [place]". Without a time the punch is now.
func parsePunch(args string, now time.Time, loc *time.Location) (time.Time, string, error) {
	fields := strings.Fields(args)
	day := now.In(loc)
	dateGiven, timeGiven := false, false
	var clock time.Time

	i := 0
	if i < len(fields) {
		if d, ok := parseDay(fields[i], now, loc); ok {
			day, dateGiven = d, true
			i++
		}
	}
	if i < len(fields) {
		if c, err := time.Parse("15:04", fields[i]); err == nil {
			clock, timeGiven = c, true
			i++
		}
	}
	place := strings.Join(fields[i:], " ")

	if dateGiven && !timeGiven {
		return time.Time{}, "", errors.New("a date needs a time, e.g. 25.12.2026 09:00")
	}
	if !timeGiven {
		return now, place, nil
	}

	at := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if at.After(now.Add(time.Minute)) {
		return time.Time{}, "", errors.New("the time is in the future")
	}
	return at, place, nil
}

func (h *Handler) clockIn(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	loc := h.reports.Location()
	at, place, err := parsePunch(args, h.reports.Now(), loc)
	if err != nil {
		h.reply(chatID, "❌ "+err.Error()+"\nSee /helptime for formats.")
		return
	}

	_, err = h.clock.ClockIn(user.ID, service.Punch{At: at, Location: place})
	if errors.Is(err, service.ErrAlreadyClockedIn) {
		h.reply(chatID, "❌ You are already clocked in. Use /out first.")
		return
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to clock in")
		h.reply(chatID, "❌ Failed to clock in: "+err.Error())
		return
	}

	local := at.In(loc)
	text := fmt.Sprintf(`✅ Clocked in!

⏰ Time: %s
📅 Date: %s`, local.Format("15:04"), local.Format("02.01.2006"))
	if place != "" {
		text += "\n📍 Place: " + place
	}
	text += "\n\n💡 Don't forget to clock out with /out"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Clock out", "command_clock_out"),
		),
	)
	h.send(msg)
}

func (h *Handler) clockOut(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	loc := h.reports.Location()
	at, place, err := parsePunch(args, h.reports.Now(), loc)
	if err != nil {
		h.reply(chatID, "❌ "+err.Error()+"\nSee /helptime for formats.")
		return
	}

	closed, err := h.clock.ClockOut(user.ID, service.Punch{At: at, Location: place})
	switch {
	case errors.Is(err, service.ErrNotClockedIn):
		msg := tgbotapi.NewMessage(chatID, "❌ You are not clocked in.")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("▶️ Clock in", "command_clock_in"),
			),
		)
		h.send(msg)
		return
	case errors.Is(err, service.ErrClockOutBeforeIn):
		h.reply(chatID, "❌ The clock-out time is before your clock-in.")
		return
	case err != nil:
		logrus.WithError(err).Error("Failed to clock out")
		h.reply(chatID, "❌ Failed to clock out: "+err.Error())
		return
	}

	text := "✅ Clocked out!\n\n" + service.FormatShift(*closed, loc)
	if closed.DurationHours >= h.reports.Policy().LongShiftThresholdHours {
		text += "\n\n⚠️ That was a long shift. Take a rest!"
	}
	h.reply(chatID, text)
}

func (h *Handler) showStatus(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	open, err := h.clock.Status(user.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to get status")
		h.reply(chatID, "❌ Failed to get status: "+err.Error())
		return
	}

	if open == nil {
		h.reply(chatID, "📭 You are not clocked in.\n\n💡 Use /in to start a shift.")
		return
	}

	in := open.ClockIn.In(h.reports.Location())
	text := fmt.Sprintf(`🟢 You are clocked in!

⏰ Since: %s
⏳ Elapsed: %s`, in.Format("02.01.2006 15:04"), service.FormatHours(open.DurationHours))
	if open.ClockInLocation != "" {
		text += "\n📍 Place: " + open.ClockInLocation
	}
	text += "\n\n💡 Use /out to finish."
	h.reply(chatID, text)
}

func (h *Handler) showShifts(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	limit := defaultShiftLimit
	if args = strings.TrimSpace(args); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 {
			h.reply(chatID, "❌ N must be a positive number, e.g. /shifts 5")
			return
		}
		limit = n
	}

	shifts, diag, err := h.reports.Shifts(user.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to load shifts")
		h.reply(chatID, "❌ Failed to load shifts: "+err.Error())
		return
	}

	text := service.FormatShiftList(shifts, limit, h.reports.Location())
	if d := service.FormatDiagnostics(diag); d != "" {
		text += "\n" + d
	}
	h.reply(chatID, text)
}

func (h *Handler) showTotals(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	totals, err := h.reports.Totals(user.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to compute totals")
		h.reply(chatID, "❌ Failed to compute totals: "+err.Error())
		return
	}

	h.reply(chatID, service.FormatTotals(totals))
}
