package handler

import (
	"errors"
	"fmt"
	"strings"

	"timeclock/internal/service"
	"timeclock/pkg/validator"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	stateFirstName = "awaiting_first_name"
	stateLastName  = "awaiting_last_name:"
	stateEmail     = "awaiting_email:"
	stateUpdate    = "awaiting_update"
)

func (h *Handler) startProfileCreation(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	user, err := h.users.GetUser(chatID)
	if err == nil && user != nil {
		h.reply(chatID, "❌ You already have a profile!\nUse /myprofile to see it or /updateprofile to change it.")
		return
	}

	h.userStates[chatID] = stateFirstName

	h.reply(chatID, `👤 Creating a profile

Step 1 of 3:
✏️ Please send your first name:`)
}

func (h *Handler) handleProfileState(message *tgbotapi.Message, state string) {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	switch {
	case state == stateFirstName:
		if validator.IsEmpty(text) {
			h.reply(chatID, "❌ The first name cannot be empty. Please send your first name:")
			return
		}
		h.userStates[chatID] = stateLastName + text
		h.reply(chatID, fmt.Sprintf(`Step 2 of 3:
✅ First name saved: %s
✏️ Now send your surname (send "-" to skip):`, text))

	case strings.HasPrefix(state, stateLastName):
		firstName := strings.TrimPrefix(state, stateLastName)
		lastName := text
		if lastName == "-" {
			lastName = ""
		}
		h.userStates[chatID] = stateEmail + firstName + "\n" + lastName
		h.reply(chatID, `Step 3 of 3:
✏️ Send your work email for timesheets (send "-" to skip):`)

	case strings.HasPrefix(state, stateEmail):
		names := strings.SplitN(strings.TrimPrefix(state, stateEmail), "\n", 2)
		p := service.Profile{Username: username(message), FirstName: names[0]}
		if len(names) > 1 {
			p.LastName = names[1]
		}
		if text != "-" {
			p.Email = text
		}

		user, err := h.users.CreateUser(chatID, p)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.reply(chatID, "❌ "+verrs.Error()+"\nPlease send a valid email or \"-\":")
			return
		}
		delete(h.userStates, chatID)
		if err != nil {
			h.reply(chatID, "❌ Failed to create profile: "+err.Error())
			return
		}

		h.reply(chatID, fmt.Sprintf(`🎉 Profile created!

%s

Use /in to clock in and /help to see everything else.`, h.users.FormatUserInfo(user)))

	case state == stateUpdate:
		delete(h.userStates, chatID)

		parts := strings.Fields(text)
		if len(parts) < 1 {
			h.reply(chatID, "❌ Wrong format. Please send your first name and surname.")
			return
		}

		p := service.Profile{Username: username(message), FirstName: parts[0]}
		for _, part := range parts[1:] {
			if strings.Contains(part, "@") {
				p.Email = part
			} else if p.LastName == "" {
				p.LastName = part
			}
		}

		user, err := h.users.UpdateUser(chatID, p)
		if err != nil {
			h.reply(chatID, "❌ Failed to update profile: "+err.Error())
			return
		}

		h.reply(chatID, "✅ Profile updated!\n\n"+h.users.FormatUserInfo(user))

	default:
		delete(h.userStates, chatID)
	}
}

func (h *Handler) showProfile(message *tgbotapi.Message) {
	user, ok := h.currentUser(message.Chat.ID)
	if !ok {
		return
	}
	h.reply(message.Chat.ID, h.users.FormatUserInfo(user))
}

func (h *Handler) startProfileUpdate(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if _, ok := h.currentUser(chatID); !ok {
		return
	}

	h.reply(chatID, `✏️ Updating your profile

Send the new details as:
FirstName Surname email@example.com

Surname and email are optional, e.g. just "Ada".`)

	h.userStates[chatID] = stateUpdate
}

func (h *Handler) deleteProfile(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, delete", "confirm_delete"),
			tgbotapi.NewInlineKeyboardButtonData("❌ No, cancel", "cancel_delete"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, "⚠️ Are you sure you want to delete your profile?\nThis cannot be undone.")
	msg.ReplyMarkup = keyboard
	h.send(msg)
}

func (h *Handler) deleteAccount(chatID int64) error {
	user, err := h.users.GetUser(chatID)
	if err != nil {
		return err
	}
	if err := h.clock.DeleteHistory(user.ID); err != nil {
		return err
	}
	if err := h.leave.DeleteUserLeave(user.ID); err != nil {
		return err
	}
	return h.users.DeleteUser(chatID)
}

func username(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return message.From.UserName
}
