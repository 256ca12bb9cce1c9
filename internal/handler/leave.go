package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"timeclock/internal/models"
	"timeclock/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

var leaveUsage = map[string]string{
	models.LeaveTypeVacation:  "/vacation from to [comment]\nExample: /vacation 01.07.2026 14.07.2026 Sea trip",
	models.LeaveTypeSickLeave: "/sick from to [comment]\nExample: /sick 01.07.2026 03.07.2026",
	models.LeaveTypeDayOff:    "/dayoff date [comment]\nExample: /dayoff 15.08.2026",
}

// bookLeave handles "/vacation from to", "/sick from to" and "/dayoff date".
func (h *Handler) bookLeave(message *tgbotapi.Message, args, leaveType string) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	usage := "Usage:\n" + leaveUsage[leaveType]
	fields := strings.Fields(args)
	if len(fields) == 0 {
		h.reply(chatID, usage+`

💡 Notes:
• Non-working days inside the period are skipped
• Every booked day counts as a full working day
• Vacations can only be booked from today on`)
		return
	}

	now, loc := h.reports.Now(), h.reports.Location()
	from, ok := parseDay(fields[0], now, loc)
	if !ok {
		h.reply(chatID, "❌ Can't read the date "+fields[0]+"\n"+usage)
		return
	}
	to, rest := from, fields[1:]
	if leaveType != models.LeaveTypeDayOff {
		if len(fields) < 2 {
			h.reply(chatID, "❌ Please give both dates.\n"+usage)
			return
		}
		if to, ok = parseDay(fields[1], now, loc); !ok {
			h.reply(chatID, "❌ Can't read the date "+fields[1]+"\n"+usage)
			return
		}
		rest = fields[2:]
	}
	comment := strings.Join(rest, " ")

	booking, err := h.leave.BookLeave(user.ID, from, to, leaveType, comment)
	switch {
	case errors.Is(err, service.ErrLeaveConflict):
		h.reply(chatID, "❌ This period overlaps another booking. See /myleave.")
		return
	case errors.Is(err, service.ErrNoWorkingDays):
		h.reply(chatID, "❌ There are no working days in this period.")
		return
	case errors.Is(err, service.ErrInvalidLeaveRange), errors.Is(err, service.ErrInvalidLeaveType):
		h.reply(chatID, "❌ "+err.Error())
		return
	case err != nil:
		logrus.WithError(err).Error("Failed to book leave")
		h.reply(chatID, "❌ Failed to book leave: "+err.Error())
		return
	}

	h.reply(chatID, fmt.Sprintf(`✅ Leave booked!

%s

📋 Each working day in the period counts as %s.`,
		service.FormatLeave(*booking),
		service.FormatHours(h.reports.Policy().LeaveDayFixedHours)))
}

func (h *Handler) showMyLeave(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	bookings, err := h.leave.GetUserLeave(user.ID)
	if err != nil {
		logrus.WithError(err).Error("Failed to get user leave")
		h.reply(chatID, "❌ Failed to load your leave: "+err.Error())
		return
	}

	if len(bookings) == 0 {
		h.reply(chatID, "📭 You have no vacations, sick leave or days off booked.")
		return
	}

	var lines []string
	lines = append(lines, "📋 My leave:", "")
	totals := map[string]int{}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, b := range bookings {
		lines = append(lines, service.FormatLeave(b))
		totals[b.Type] += b.Days()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Cancel #%d", b.ID), fmt.Sprintf("cancel_leave_%d", b.ID)),
		))
	}

	lines = append(lines, "",
		fmt.Sprintf("🌴 Vacation days: %d", totals[models.LeaveTypeVacation]),
		fmt.Sprintf("🤒 Sick days: %d", totals[models.LeaveTypeSickLeave]),
		fmt.Sprintf("🏖 Days off: %d", totals[models.LeaveTypeDayOff]),
	)

	msg := tgbotapi.NewMessage(chatID, strings.Join(lines, "\n"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.send(msg)
}

func (h *Handler) cancelLeave(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(args), "#"), 10, 64)
	if err != nil || id == 0 {
		h.reply(chatID, "❌ Usage: /cancelleave ID (see /myleave)")
		return
	}

	err = h.leave.CancelLeave(user.ID, uint(id))
	switch {
	case errors.Is(err, service.ErrLeaveNotFound), errors.Is(err, service.ErrForbidden):
		h.reply(chatID, fmt.Sprintf("❌ Booking #%d not found.", id))
	case err != nil:
		logrus.WithError(err).Error("Failed to cancel leave")
		h.reply(chatID, "❌ Failed to cancel leave: "+err.Error())
	default:
		h.reply(chatID, fmt.Sprintf("✅ Booking #%d cancelled.", id))
	}
}

func (h *Handler) checkDay(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	now, loc := h.reports.Now(), h.reports.Location()

	day := now.In(loc)
	if args = strings.TrimSpace(args); args != "" {
		d, ok := parseDay(args, now, loc)
		if !ok {
			h.reply(chatID, "❌ Can't read the date. Use dd.mm.yyyy or dd.mm")
			return
		}
		day = d
	}

	off, err := h.calendar.IsNonWorkingDay(day)
	if err != nil {
		logrus.WithError(err).Error("Failed to check day")
		h.reply(chatID, "❌ Failed to check the day: "+err.Error())
		return
	}

	if off {
		h.reply(chatID, fmt.Sprintf("🏖 %s is a non-working day.", day.Format("02.01.2006")))
		return
	}
	h.reply(chatID, fmt.Sprintf("💼 %s is a working day.", day.Format("02.01.2006")))
}
