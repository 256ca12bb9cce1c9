package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"timeclock/internal/models"
	"timeclock/internal/repository"
	"timeclock/internal/service"
	"timeclock/pkg/validator"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

func (h *Handler) showAllUsers(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	allUsers, err := h.users.FormatAllUsers()
	if err != nil {
		h.reply(chatID, "❌ Failed to list users: "+err.Error())
		return
	}

	h.reply(chatID, allUsers)
}

func (h *Handler) showStats(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	total, admins, err := h.users.GetStats()
	if err != nil {
		h.reply(chatID, "❌ Failed to load stats: "+err.Error())
		return
	}

	h.reply(chatID, fmt.Sprintf(`📊 Users:

👥 Total: %d
👑 Administrators: %d
👤 Employees: %d`, total, admins, total-admins))
}

func (h *Handler) showAdmins(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	admins, err := h.users.GetAdmins()
	if err != nil {
		h.reply(chatID, "❌ Failed to list administrators: "+err.Error())
		return
	}

	if len(admins) == 0 {
		h.reply(chatID, "👑 No administrators.")
		return
	}

	lines := []string{"👑 Administrators:", ""}
	for i, admin := range admins {
		info := fmt.Sprintf("%d. %s ", i+1, admin.FullName())
		if admin.Username != "" {
			info += fmt.Sprintf("(@%s) ", admin.Username)
		}
		info += fmt.Sprintf("- chat: %d", admin.ChatID)
		lines = append(lines, info)
	}

	h.reply(chatID, strings.Join(lines, "\n"))
}

func (h *Handler) promoteToAdmin(message *tgbotapi.Message, args string) {
	h.changeRole(message, args, models.RoleAdmin)
}

func (h *Handler) demoteToEmployee(message *tgbotapi.Message, args string) {
	h.changeRole(message, args, models.RoleEmployee)
}

func (h *Handler) changeRole(message *tgbotapi.Message, args string, role string) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	args = strings.TrimSpace(args)
	if args == "" {
		h.reply(chatID, "❌ Give the user's chat ID.\nExample: /promote 123456789")
		return
	}

	if !validator.IsNumeric(args) {
		h.reply(chatID, "❌ The chat ID must be a number.")
		return
	}
	targetChatID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		h.reply(chatID, "❌ The chat ID is out of range.")
		return
	}

	if role != models.RoleAdmin && h.config != nil &&
		h.config.BaseAdminChatID != 0 && targetChatID == h.config.BaseAdminChatID {
		h.reply(chatID, "❌ The main administrator from the configuration can't be demoted!")
		return
	}

	err = h.users.UpdateRole(chatID, targetChatID, models.Role(role))
	if errors.Is(err, service.ErrUserNotFound) {
		h.reply(chatID, fmt.Sprintf("❌ No user with chat ID %d.", targetChatID))
		return
	}
	if err != nil {
		h.reply(chatID, "❌ Failed to change role: "+err.Error())
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ User %d is now %s.", targetChatID, role))
}

func (h *Handler) showAllTotals(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	rows, sum, err := h.reports.AllTotals()
	if err != nil {
		logrus.WithError(err).Error("Failed to compute totals")
		h.reply(chatID, "❌ Failed to compute totals: "+err.Error())
		return
	}

	h.reply(chatID, service.FormatAllTotals(rows, sum))
}

func (h *Handler) showAnomalies(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	scope := service.ScopeToday
	switch strings.TrimSpace(args) {
	case "", "today":
	case "all":
		scope = service.ScopeAll
	default:
		h.reply(chatID, "❌ Usage: /anomalies [all]")
		return
	}

	anomalies, err := h.reports.Anomalies(scope)
	if err != nil {
		logrus.WithError(err).Error("Failed to detect anomalies")
		h.reply(chatID, "❌ Failed to detect anomalies: "+err.Error())
		return
	}

	names, err := h.users.NamesByKey()
	if err != nil {
		logrus.WithError(err).Warn("Failed to load user names")
	}

	h.reply(chatID, service.FormatAnomalies(anomalies, names, h.reports.Location()))
}

func (h *Handler) showDiagnostics(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	diag, err := h.reports.Diagnostics()
	if err != nil {
		h.reply(chatID, "❌ Failed to compute diagnostics: "+err.Error())
		return
	}

	text := service.FormatDiagnostics(diag)
	if text == "" {
		text = "✅ All clock events are usable."
	}
	h.reply(chatID, text)
}

func (h *Handler) addHoliday(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	day, ok := parseDay(strings.TrimSpace(args), h.reports.Now(), h.reports.Location())
	if !ok {
		h.reply(chatID, "❌ Usage: /addholiday dd.mm.yyyy")
		return
	}

	err := h.calendar.AddDay(day)
	if errors.Is(err, repository.ErrDuplicateHoliday) {
		h.reply(chatID, fmt.Sprintf("ℹ️ %s is already a non-working day.", day.Format("02.01.2006")))
		return
	}
	if err != nil {
		h.reply(chatID, "❌ Failed to add the day: "+err.Error())
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ %s is now a non-working day.", day.Format("02.01.2006")))
}

func (h *Handler) removeHoliday(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	day, ok := parseDay(strings.TrimSpace(args), h.reports.Now(), h.reports.Location())
	if !ok {
		h.reply(chatID, "❌ Usage: /removeholiday dd.mm.yyyy")
		return
	}

	if err := h.calendar.RemoveDay(day); err != nil {
		h.reply(chatID, "❌ Failed to remove the day: "+err.Error())
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ %s is now a working day.", day.Format("02.01.2006")))
}

// showHolidays lists non-working days for "/holidays [month] [year]".
func (h *Handler) showHolidays(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	now := h.reports.Now().In(h.reports.Location())
	year, month := now.Year(), int(now.Month())

	parts := strings.Fields(args)
	if len(parts) > 0 {
		m, err := strconv.Atoi(parts[0])
		if err != nil || m < 1 || m > 12 {
			h.reply(chatID, "❌ Usage: /holidays [month] [year]")
			return
		}
		month = m
	}
	if len(parts) > 1 {
		y, err := strconv.Atoi(parts[1])
		if err != nil || y < 1 {
			h.reply(chatID, "❌ Usage: /holidays [month] [year]")
			return
		}
		year = y
	}

	days, err := h.calendar.GetNonWorkingDaysForMonth(year, month)
	if err != nil {
		h.reply(chatID, "❌ Failed to load the calendar: "+err.Error())
		return
	}

	title := fmt.Sprintf("📅 %s %d", time.Month(month), year)
	if len(days) == 0 {
		h.reply(chatID, title+": no non-working days.")
		return
	}

	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, strconv.Itoa(d.Day))
	}
	h.reply(chatID, fmt.Sprintf("%s, non-working days (%d):\n%s", title, len(days), strings.Join(dates, ", ")))
}
