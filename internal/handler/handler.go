package handler

import (
	"errors"
	"strconv"
	"strings"

	"timeclock/internal/config"
	"timeclock/internal/models"
	"timeclock/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender is the part of the bot API the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	bot        Sender
	users      *service.UserService
	clock      *service.ClockService
	leave      *service.LeaveService
	reports    *service.ReportService
	calendar   *service.NonWorkingDayService
	userStates map[int64]string
	config     *config.BotConfig
}

func NewHandler(
	bot Sender,
	users *service.UserService,
	clock *service.ClockService,
	leave *service.LeaveService,
	reports *service.ReportService,
	calendar *service.NonWorkingDayService,
	cfg *config.BotConfig,
) *Handler {
	return &Handler{
		bot:        bot,
		users:      users,
		clock:      clock,
		leave:      leave,
		reports:    reports,
		calendar:   calendar,
		userStates: make(map[int64]string),
		config:     cfg,
	}
}

func (h *Handler) HandleUpdates(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		h.HandleUpdate(update)
	}
}

func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	h.handleMessage(update.Message)
}

func (h *Handler) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	// drop the keyboard so the buttons can't be pressed twice
	editMsg := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID, tgbotapi.NewInlineKeyboardMarkup())
	h.request(editMsg)

	fake := &tgbotapi.Message{
		MessageID: callback.Message.MessageID,
		Chat:      callback.Message.Chat,
		From:      callback.From,
	}

	switch {
	case data == "command_clock_in":
		h.clockIn(fake, "")
	case data == "command_clock_out":
		h.clockOut(fake, "")
	case data == "confirm_delete":
		if err := h.deleteAccount(chatID); err != nil {
			h.reply(chatID, "❌ Failed to delete profile: "+err.Error())
		} else {
			h.reply(chatID, "✅ Your profile and time records have been deleted.")
		}
	case data == "cancel_delete":
		h.reply(chatID, "❌ Profile deletion cancelled.")
	case strings.HasPrefix(data, "cancel_leave_"):
		id, err := strconv.ParseUint(strings.TrimPrefix(data, "cancel_leave_"), 10, 64)
		if err != nil {
			logrus.WithField("data", data).Warn("Malformed cancel_leave callback")
			break
		}
		h.cancelLeave(fake, strconv.FormatUint(id, 10))
	}

	h.request(tgbotapi.NewCallback(callback.ID, ""))
}

func (h *Handler) handleMessage(message *tgbotapi.Message) {
	username := ""
	if message.From != nil {
		username = message.From.UserName
	}
	logrus.Infof("[%s] %s", username, message.Text)

	chatID := message.Chat.ID

	if state, exists := h.userStates[chatID]; exists && !message.IsCommand() {
		h.handleProfileState(message, state)
		return
	}
	// any command aborts an unfinished profile dialog
	delete(h.userStates, chatID)

	if message.IsCommand() {
		h.handleCommand(message)
		return
	}

	h.reply(chatID, "🤖 I only understand commands. Use /help to see them.")
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		logrus.WithError(err).Error("Failed to send telegram message")
	}
}

func (h *Handler) request(c tgbotapi.Chattable) {
	if _, err := h.bot.Request(c); err != nil {
		logrus.WithError(err).Debug("Telegram request failed")
	}
}

// currentUser loads the sender's profile, replying with a hint when there is none.
func (h *Handler) currentUser(chatID int64) (*models.User, bool) {
	user, err := h.users.GetUser(chatID)
	if errors.Is(err, service.ErrUserNotFound) {
		h.reply(chatID, "❌ Profile not found.\nUse /createprofile to create one.")
		return nil, false
	}
	if err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to load user")
		h.reply(chatID, "❌ Failed to load your profile: "+err.Error())
		return nil, false
	}
	return user, true
}

// requireAdmin replies with an error and returns false unless chatID is an admin.
func (h *Handler) requireAdmin(chatID int64) bool {
	isAdmin, err := h.users.IsAdmin(chatID)
	if err != nil {
		logrus.WithError(err).Error("Error checking admin status")
		h.reply(chatID, "❌ Failed to check permissions: "+err.Error())
		return false
	}

	if !isAdmin {
		logrus.WithField("chat_id", chatID).Warn("Unauthorized access to admin command")
		h.reply(chatID, "❌ Access denied. This command is for administrators only.")
		return false
	}
	return true
}
