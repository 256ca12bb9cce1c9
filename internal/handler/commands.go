package handler

import (
	"fmt"

	"timeclock/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(message *tgbotapi.Message) {
	command := message.Command()
	args := message.CommandArguments()

	switch command {
	case "start":
		h.sendStartMessage(message)
	case "help":
		h.sendHelpMessage(message)
	case "helpadmin":
		h.sendAdminHelpMessage(message)
	case "helptime":
		h.showTimeFormatsHelp(message)

	case "createprofile":
		h.startProfileCreation(message)
	case "myprofile":
		h.showProfile(message)
	case "updateprofile":
		h.startProfileUpdate(message)
	case "deleteprofile":
		h.deleteProfile(message)

	case "in", "startwork":
		h.clockIn(message, args)
	case "out", "endwork", "finish":
		h.clockOut(message, args)
	case "status":
		h.showStatus(message)
	case "shifts", "history":
		h.showShifts(message, args)
	case "totals", "mystats":
		h.showTotals(message)
	case "export":
		h.exportMine(message, args)

	case "vacation":
		h.bookLeave(message, args, models.LeaveTypeVacation)
	case "sick", "sickleave":
		h.bookLeave(message, args, models.LeaveTypeSickLeave)
	case "dayoff":
		h.bookLeave(message, args, models.LeaveTypeDayOff)
	case "myleave", "myabsences":
		h.showMyLeave(message)
	case "cancelleave":
		h.cancelLeave(message, args)
	case "checkday":
		h.checkDay(message, args)

	case "allusers":
		h.showAllUsers(message)
	case "stats":
		h.showStats(message)
	case "admins":
		h.showAdmins(message)
	case "promote":
		h.promoteToAdmin(message, args)
	case "demote":
		h.demoteToEmployee(message, args)
	case "alltotals":
		h.showAllTotals(message)
	case "anomalies":
		h.showAnomalies(message, args)
	case "diagnostics":
		h.showDiagnostics(message)
	case "exportall":
		h.exportAll(message, args)
	case "addholiday":
		h.addHoliday(message, args)
	case "removeholiday":
		h.removeHoliday(message, args)
	case "holidays":
		h.showHolidays(message, args)

	default:
		h.sendUnknownCommand(message)
	}
}

func (h *Handler) sendUnknownCommand(message *tgbotapi.Message) {
	h.reply(message.Chat.ID, "❌ Unknown command. Use /help to list commands.")
}

const helpText = `📋 Available commands:

👤 Profile:
/createprofile - Create a profile (name, surname, email)
/myprofile - Show my profile
/updateprofile - Update my profile
/deleteprofile - Delete my profile

⏰ Time clock:
/in [date] [time] [place] - Clock in (see /helptime)
/out [date] [time] [place] - Clock out
/status - Am I clocked in?
/shifts [N] - Last N shifts (10 by default)
/totals - Hours today, yesterday, last 7 days, last month and all time
/export [from] [to] - Timesheet as CSV (last 7 days by default)

🌴 Leave:
/vacation from to - Book a vacation
    Example: /vacation 01.07.2026 14.07.2026
/sick from to - Book sick leave
/dayoff date - Book a day off
/myleave - My leave bookings
/cancelleave ID - Cancel a booking
/checkday [date] - Is this a working day?

🛠 Other:
/start - Start the bot
/help - Show this message
/helpadmin - Administrator commands`

func (h *Handler) sendStartMessage(message *tgbotapi.Message) {
	text := "👋 Hi! I keep track of your working hours.\n\n" +
		"1. Create a profile with /createprofile\n" +
		"2. Clock in with /in when you start\n" +
		"3. Clock out with /out when you finish\n" +
		"4. Check your hours with /totals\n\n" + helpText

	h.reply(message.Chat.ID, text)
}

func (h *Handler) sendHelpMessage(message *tgbotapi.Message) {
	h.reply(message.Chat.ID, helpText)
}

func (h *Handler) sendAdminHelpMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !h.requireAdmin(chatID) {
		return
	}

	text := `👑 Administration:
/allusers - All users
/stats - User counts
/admins - Administrators
/promote CHAT_ID - Make an administrator
/demote CHAT_ID - Make an employee

📊 Reports:
/alltotals - Hours per user
/anomalies [all] - Unclosed and long shifts (today by default)
/diagnostics - Events the reports had to skip
/exportall [from] [to] - Everyone's timesheet as XLSX

📅 Calendar:
/holidays [month] [year] - Non-working days
/addholiday date - Mark a day as non-working
/removeholiday date - Mark a day as working`

	if h.config != nil && h.config.BaseAdminChatID != 0 {
		text += fmt.Sprintf("\n\n🔧 Main administrator chat: %d", h.config.BaseAdminChatID)
	}

	h.reply(chatID, text)
}

func (h *Handler) showTimeFormatsHelp(message *tgbotapi.Message) {
	text := `📝 Date and time formats:

Date (optional):
• dd.mm.yyyy (25.12.2026)
• dd.mm (25.12, current year)
• yyyy-mm-dd (2026-12-25)

Time (optional):
• hh:mm (09:30)

Examples:
• /in - clock in now
• /in 09:00 - clock in today at 9:00
• /in 25.12.2026 09:30 - clock in on 25 December at 9:30
• /out 18:00 Warehouse - clock out at 18:00 at the warehouse

⚠️ Notes:
• A date needs a time
• Punches in the future are rejected
• Anything after the date and time is saved as the place`

	h.reply(message.Chat.ID, text)
}
