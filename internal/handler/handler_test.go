package handler

import (
	"strings"
	"testing"
	"time"

	"timeclock/internal/config"
	"timeclock/internal/repository"
	"timeclock/internal/service"
	"timeclock/internal/shift"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminChat = int64(1)
	adaChat   = int64(100)
)

type fakeBot struct {
	sent []tgbotapi.Chattable
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) last(t *testing.T) tgbotapi.Chattable {
	t.Helper()
	require.NotEmpty(t, b.sent, "nothing was sent")
	return b.sent[len(b.sent)-1]
}

func (b *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	switch m := b.last(t).(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.DocumentConfig:
		return m.Caption
	}
	t.Fatalf("unexpected message type %T", b.last(t))
	return ""
}

type fixture struct {
	now     time.Time
	bot     *fakeBot
	handler *Handler
	users   *service.UserService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	log, _ := logtest.NewNullLogger()

	userRepo, err := repository.NewUserRepository(db)
	require.NoError(t, err)
	eventRepo, err := repository.NewGormClockEventRepository(db, log)
	require.NoError(t, err)
	bookingRepo, err := repository.NewGormLeaveBookingRepository(db)
	require.NoError(t, err)
	dayRepo, err := repository.NewGormNonWorkingDayRepository(db)
	require.NoError(t, err)

	f := &fixture{now: now, bot: &fakeBot{}}
	pipeline := service.NewPipeline(shift.Options{
		Policy:   shift.DefaultPolicy(),
		Location: time.UTC,
		Now:      func() time.Time { return f.now },
		Logger:   log,
	})

	f.users = service.NewUserService(&userRepo)
	calendar := service.NewNonWorkingDayService(dayRepo)
	clock := service.NewClockService(eventRepo, &userRepo, pipeline, log)
	leave := service.NewLeaveService(bookingRepo, calendar, pipeline, log)
	reports := service.NewReportService(eventRepo, &userRepo, calendar, pipeline, log)

	require.NoError(t, f.users.InitializeAdmin(adminChat))

	cfg := &config.BotConfig{BaseAdminChatID: adminChat}
	f.handler = NewHandler(f.bot, f.users, clock, leave, reports, calendar, cfg)
	return f
}

// say sends text from chatID; text starting with "/" is a command.
func (f *fixture) say(chatID int64, text string) {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID, UserName: "tester"},
	}
	if strings.HasPrefix(text, "/") {
		n := strings.IndexByte(text, ' ')
		if n < 0 {
			n = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	f.handler.HandleUpdate(tgbotapi.Update{Message: msg})
}

func (f *fixture) press(chatID int64, data string) {
	f.handler.HandleUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}})
}

func (f *fixture) register(t *testing.T) {
	t.Helper()
	_, err := f.users.CreateUser(adaChat, service.Profile{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)
}

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestProfileCreationDialog(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"))

	f.say(adaChat, "/createprofile")
	assert.Contains(t, f.bot.lastText(t), "Step 1 of 3")

	f.say(adaChat, "Ada")
	assert.Contains(t, f.bot.lastText(t), "First name saved: Ada")

	f.say(adaChat, "Lovelace")
	assert.Contains(t, f.bot.lastText(t), "Step 3 of 3")

	f.say(adaChat, "not-an-email")
	assert.Contains(t, f.bot.lastText(t), "valid email")

	f.say(adaChat, "ada@example.com")
	assert.Contains(t, f.bot.lastText(t), "Profile created")

	user, err := f.users.GetUser(adaChat)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "Lovelace", user.LastName)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "tester", user.Username)

	f.say(adaChat, "/createprofile")
	assert.Contains(t, f.bot.lastText(t), "already have a profile")
}

func TestClockInOut(t *testing.T) {
	f := newFixture(t, at("2024-03-04T17:00"))
	f.register(t)

	f.say(adaChat, "/out")
	assert.Contains(t, f.bot.lastText(t), "not clocked in")

	f.say(adaChat, "/in 08:00 Main office")
	text := f.bot.lastText(t)
	assert.Contains(t, text, "Clocked in")
	assert.Contains(t, text, "08:00")
	assert.Contains(t, text, "Main office")

	f.say(adaChat, "/in")
	assert.Contains(t, f.bot.lastText(t), "already clocked in")

	f.say(adaChat, "/status")
	assert.Contains(t, f.bot.lastText(t), "9h")

	f.say(adaChat, "/out 23:00")
	assert.Contains(t, f.bot.lastText(t), "future")

	f.say(adaChat, "/out 16:30")
	assert.Contains(t, f.bot.lastText(t), "8h 30m")

	f.say(adaChat, "/totals")
	assert.Contains(t, f.bot.lastText(t), "Today: 8h 30m")

	f.say(adaChat, "/shifts 1")
	assert.Contains(t, f.bot.lastText(t), "04.03.2024 08:00 - 16:30")

	f.say(adaChat, "/shifts zero")
	assert.Contains(t, f.bot.lastText(t), "positive number")
}

func TestClockInButton(t *testing.T) {
	f := newFixture(t, at("2024-03-04T09:00"))
	f.register(t)

	f.press(adaChat, "command_clock_in")
	assert.Contains(t, f.bot.lastText(t), "Clocked in")

	f.now = at("2024-03-04T10:00")
	f.press(adaChat, "command_clock_out")
	assert.Contains(t, f.bot.lastText(t), "Clocked out")
}

func TestCommandsNeedProfile(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"))

	for _, cmd := range []string{"/in", "/status", "/totals", "/export", "/myleave"} {
		f.say(adaChat, cmd)
		assert.Contains(t, f.bot.lastText(t), "Profile not found", cmd)
	}
}

func TestLeaveCommands(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"))
	f.register(t)

	f.say(adaChat, "/vacation")
	assert.Contains(t, f.bot.lastText(t), "Usage")

	f.say(adaChat, "/vacation 05.03.2024 06.03.2024 Sea trip")
	assert.Contains(t, f.bot.lastText(t), "Leave booked")

	f.say(adaChat, "/dayoff 06.03.2024")
	assert.Contains(t, f.bot.lastText(t), "overlaps")

	f.say(adaChat, "/vacation 01.03.2024 01.03.2024")
	assert.Contains(t, f.bot.lastText(t), "future")

	f.say(adaChat, "/myleave")
	leave, ok := f.bot.last(t).(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, leave.Text, "#1")
	assert.Contains(t, leave.Text, "Vacation days: 2")
	assert.NotNil(t, leave.ReplyMarkup)

	f.say(adaChat, "/cancelleave 2")
	assert.Contains(t, f.bot.lastText(t), "not found")

	f.press(adaChat, "cancel_leave_1")
	assert.Contains(t, f.bot.lastText(t), "#1 cancelled")

	f.say(adaChat, "/myleave")
	assert.Contains(t, f.bot.lastText(t), "no vacations")
}

func TestAdminCommands(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"))
	f.register(t)

	f.say(adaChat, "/alltotals")
	assert.Contains(t, f.bot.lastText(t), "Access denied")

	f.say(adminChat, "/anomalies")
	assert.Contains(t, f.bot.lastText(t), "No anomalies")

	f.say(adaChat, "/in 08:00")
	f.say(adminChat, "/anomalies")
	text := f.bot.lastText(t)
	assert.Contains(t, text, "Unclosed shifts")
	assert.Contains(t, text, "Ada Lovelace")

	f.say(adminChat, "/anomalies week")
	assert.Contains(t, f.bot.lastText(t), "Usage")

	f.say(adminChat, "/alltotals")
	assert.Contains(t, f.bot.lastText(t), "Ada Lovelace: 4h")

	f.say(adminChat, "/diagnostics")
	assert.Contains(t, f.bot.lastText(t), "usable")

	f.say(adminChat, "/promote 100")
	assert.Contains(t, f.bot.lastText(t), "now admin")
	isAdmin, err := f.users.IsAdmin(adaChat)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	f.say(adaChat, "/demote 1")
	assert.Contains(t, f.bot.lastText(t), "can't be demoted")

	f.say(adminChat, "/promote 555")
	assert.Contains(t, f.bot.lastText(t), "No user")
}

func TestCalendarCommands(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"))

	f.say(adminChat, "/addholiday 08.03.2024")
	assert.Contains(t, f.bot.lastText(t), "now a non-working day")

	f.say(adminChat, "/addholiday 08.03")
	assert.Contains(t, f.bot.lastText(t), "already")

	f.say(adminChat, "/holidays 3 2024")
	assert.Contains(t, f.bot.lastText(t), "non-working days (1):\n8")

	f.say(adminChat, "/checkday 08.03.2024")
	assert.Contains(t, f.bot.lastText(t), "non-working day")

	f.say(adminChat, "/removeholiday 08.03.2024")
	f.say(adminChat, "/checkday 08.03.2024")
	assert.Contains(t, f.bot.lastText(t), "is a working day")
}

func TestExportCommands(t *testing.T) {
	f := newFixture(t, at("2024-03-04T18:00"))
	f.register(t)

	f.say(adaChat, "/in 08:00")
	f.say(adaChat, "/out 12:00")

	f.say(adaChat, "/export 01.03.2024 04.03.2024")
	doc, ok := f.bot.last(t).(tgbotapi.DocumentConfig)
	require.True(t, ok, "expected a document")
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "timesheet-20240301-20240304.csv", file.Name)

	lines := strings.Split(strings.TrimSpace(string(file.Bytes)), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "User Name,Surname"))
	assert.Contains(t, lines[4], "4.00")

	f.say(adaChat, "/export 04.03.2024 01.03.2024")
	assert.Contains(t, f.bot.lastText(t), "before the start")

	f.say(adaChat, "/exportall")
	assert.Contains(t, f.bot.lastText(t), "Access denied")

	f.say(adminChat, "/exportall")
	doc, ok = f.bot.last(t).(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, "🗂 Timesheets for 2 users", doc.Caption)
}

func TestDeleteProfile(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"))
	f.register(t)
	f.say(adaChat, "/in 08:00")

	f.say(adaChat, "/deleteprofile")
	confirm, ok := f.bot.last(t).(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.NotNil(t, confirm.ReplyMarkup)

	f.press(adaChat, "confirm_delete")
	assert.Contains(t, f.bot.lastText(t), "deleted")

	_, err := f.users.GetUser(adaChat)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUnknownInput(t *testing.T) {
	f := newFixture(t, at("2024-03-04T12:00"))

	f.say(adaChat, "/dance")
	assert.Contains(t, f.bot.lastText(t), "Unknown command")

	f.say(adaChat, "hello")
	assert.Contains(t, f.bot.lastText(t), "only understand commands")
}

func TestParsePunch(t *testing.T) {
	now := at("2024-03-04T12:00")

	cases := []struct {
		args  string
		want  time.Time
		place string
		err   bool
	}{
		{"", now, "", false},
		{"Warehouse 2", now, "Warehouse 2", false},
		{"08:15", at("2024-03-04T08:15"), "", false},
		{"03.03.2024 22:00 Night desk", at("2024-03-03T22:00"), "Night desk", false},
		{"2024-03-01 07:00", at("2024-03-01T07:00"), "", false},
		{"01.03 07:00", at("2024-03-01T07:00"), "", false},
		{"03.03.2024", time.Time{}, "", true},
		{"13:00", time.Time{}, "", true},
	}

	for _, c := range cases {
		got, place, err := parsePunch(c.args, now, time.UTC)
		if c.err {
			assert.Error(t, err, c.args)
			continue
		}
		require.NoError(t, err, c.args)
		assert.True(t, c.want.Equal(got), "%q: got %v", c.args, got)
		assert.Equal(t, c.place, place, c.args)
	}
}
