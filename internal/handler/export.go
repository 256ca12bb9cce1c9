package handler

import (
	"bytes"
	"fmt"
	"strings"

	"timeclock/internal/export"
	"timeclock/internal/shift"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	defaultExportDays = 7
	maxExportDays     = 366
)

// exportRange reads "[from] [to]". No dates means the last seven days; a
// single date means that day up to today.
func (h *Handler) exportRange(args string) (shift.DateRange, error) {
	now, loc := h.reports.Now(), h.reports.Location()
	r := shift.LastDays(now, defaultExportDays, loc)

	fields := strings.Fields(args)
	if len(fields) > 2 {
		return r, fmt.Errorf("expected at most two dates")
	}
	if len(fields) > 0 {
		from, ok := parseDay(fields[0], now, loc)
		if !ok {
			return r, fmt.Errorf("can't read the date %s", fields[0])
		}
		r = shift.DateRange{From: from, To: now}
	}
	if len(fields) > 1 {
		to, ok := parseDay(fields[1], now, loc)
		if !ok {
			return r, fmt.Errorf("can't read the date %s", fields[1])
		}
		r.To = to
	}

	if r.To.Before(r.From) {
		return r, fmt.Errorf("the end date is before the start date")
	}
	if len(r.Days(loc)) > maxExportDays {
		return r, fmt.Errorf("at most %d days per export", maxExportDays)
	}
	return r, nil
}

func (h *Handler) exportMine(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	user, ok := h.currentUser(chatID)
	if !ok {
		return
	}

	r, err := h.exportRange(args)
	if err != nil {
		h.reply(chatID, "❌ "+err.Error()+"\nUsage: /export [from] [to]")
		return
	}

	sheets, err := h.reports.Timesheets([]uint{user.ID}, r)
	if err != nil {
		logrus.WithError(err).Error("Failed to build timesheet")
		h.reply(chatID, "❌ Failed to build timesheet: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, sheets, h.reports.Location()); err != nil {
		logrus.WithError(err).Error("Failed to write timesheet")
		h.reply(chatID, "❌ Failed to write timesheet: "+err.Error())
		return
	}

	h.sendFile(chatID, fileName("timesheet", r, "csv"), buf.Bytes(), "🗂 Your timesheet")
}

func (h *Handler) exportAll(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	r, err := h.exportRange(args)
	if err != nil {
		h.reply(chatID, "❌ "+err.Error()+"\nUsage: /exportall [from] [to]")
		return
	}

	sheets, err := h.reports.Timesheets(nil, r)
	if err != nil {
		logrus.WithError(err).Error("Failed to build timesheets")
		h.reply(chatID, "❌ Failed to build timesheets: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, sheets, h.reports.Location()); err != nil {
		logrus.WithError(err).Error("Failed to write workbook")
		h.reply(chatID, "❌ Failed to write workbook: "+err.Error())
		return
	}

	h.sendFile(chatID, fileName("timesheets", r, "xlsx"), buf.Bytes(), fmt.Sprintf("🗂 Timesheets for %d users", len(sheets)))
}

func (h *Handler) sendFile(chatID int64, name string, data []byte, caption string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	h.send(doc)
}

func fileName(prefix string, r shift.DateRange, ext string) string {
	return fmt.Sprintf("%s-%s-%s.%s", prefix, r.From.Format("20060102"), r.To.Format("20060102"), ext)
}
