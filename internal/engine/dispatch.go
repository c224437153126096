package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/studgram/studgram-bot/internal/templates"
)

// Event is one inbound transport notification.
type Event struct {
	ChatID   int64
	UserID   int64
	Text     string
	Payload  string
	ImageURL string
}

// Requirement is the access level an action demands.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireApproved
)

type actionSpec struct {
	access  Requirement
	wizard  bool
	handle  func(ctx context.Context, e *Engine, user *User, chatID int64, args []string)
	wizHand func(ctx context.Context, e *Engine, p *Pending, chatID int64, args []string)
}

// actionTable is the static dispatch table. Wizard actions operate on the
// pending session; all others operate on a committed user record.
var actionTable = map[Action]actionSpec{
	ActionUniversity: {wizard: true, wizHand: func(ctx context.Context, e *Engine, p *Pending, chatID int64, args []string) {
		e.handleUniversitySelection(ctx, p, chatID, args[0])
	}},
	ActionFaculty: {wizard: true, wizHand: func(ctx context.Context, e *Engine, p *Pending, chatID int64, args []string) {
		e.handleFacultySelection(ctx, p, chatID, args[0])
	}},
	ActionGroup: {wizard: true, wizHand: func(ctx context.Context, e *Engine, p *Pending, chatID int64, args []string) {
		e.handleGroupSelection(ctx, p, chatID, args[0])
	}},
	ActionConfirmYes: {wizard: true, wizHand: func(ctx context.Context, e *Engine, p *Pending, chatID int64, args []string) {
		e.handleConfirmYes(ctx, p, chatID)
	}},
	ActionConfirmNo: {wizard: true, wizHand: func(ctx context.Context, e *Engine, p *Pending, chatID int64, args []string) {
		e.handleConfirmNo(ctx, p, chatID)
	}},

	ActionMenuBack: {handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showMainMenu(ctx, user, chatID)
	}},
	ActionMenuStatus: {handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showStatus(ctx, user, chatID)
	}},
	ActionMenuProfile: {handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showProfile(ctx, user, chatID)
	}},
	ActionProfileRefresh: {handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showProfile(ctx, user, chatID)
	}},
	ActionMenuInfo: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showInfo(ctx, user, chatID)
	}},
	ActionRestart: {},

	ActionMenuSchedule: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showScheduleMenu(ctx, user, chatID)
	}},
	ActionScheduleToday: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showScheduleFor(ctx, user, chatID, e.now())
	}},
	ActionScheduleTomorrow: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showScheduleFor(ctx, user, chatID, e.now().AddDate(0, 0, 1))
	}},
	ActionMenuCalendar: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showCalendar(ctx, user, chatID)
	}},
	ActionCalendarPrev: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.shiftCalendar(ctx, user, chatID, -1)
	}},
	ActionCalendarNext: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.shiftCalendar(ctx, user, chatID, 1)
	}},
	ActionCalendarToday: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		now := e.now()
		user.SelectedYear = now.Year()
		user.SelectedMonth = now.Month()
		e.showCalendar(ctx, user, chatID)
	}},
	ActionMenuAssignments: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showSubjects(ctx, user, chatID)
	}},
	ActionSubject: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.showSubject(ctx, user, chatID, args[0])
	}},
	ActionMenuChatbot: {access: RequireApproved, handle: func(ctx context.Context, e *Engine, user *User, chatID int64, args []string) {
		e.startChat(ctx, user, chatID)
	}},
}

// textCommands maps free-text synonyms to the same actions as the menu
// buttons.
var textCommands = map[string]Action{
	"/menu":        ActionMenuBack,
	"меню":         ActionMenuBack,
	"главное меню": ActionMenuBack,
	"назад":        ActionMenuBack,
	"расписание":   ActionMenuSchedule,
	"задания":      ActionMenuAssignments,
	"дисциплины":   ActionMenuAssignments,
	"профиль":      ActionMenuProfile,
	"мой профиль":  ActionMenuProfile,
	"статус":       ActionMenuStatus,
	"мой статус":   ActionMenuStatus,
	"инфо":         ActionMenuInfo,
	"о вузе":       ActionMenuInfo,
	"календарь":    ActionMenuCalendar,
	"чат-бот":      ActionMenuChatbot,
	"сегодня":      ActionScheduleToday,
	"завтра":       ActionScheduleTomorrow,

	"предыдущий месяц": ActionCalendarPrev,
	"пред месяц":       ActionCalendarPrev,
	"следующий месяц":  ActionCalendarNext,
	"след месяц":       ActionCalendarNext,
}

// HandleCallback routes one button press. Every payload produces exactly one
// reply; handler panics are converted to the generic failure reply.
func (e *Engine) HandleCallback(ctx context.Context, ev Event) {
	payload := strings.TrimSpace(ev.Payload)
	action, args, ok := Decode(payload)
	if !ok {
		if e.log != nil {
			e.log.WarnContext(ctx, "dispatch.unroutable",
				slog.Int64("chat_id", ev.ChatID),
				slog.String("payload", payload))
		}
		e.send(ctx, ev.ChatID, templates.ActionFailed, nil)
		return
	}

	userID := ev.UserID
	if embedsUserID(action) && len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil && id != 0 {
			userID = id
		}
		args = args[1:]
	}
	if userID == 0 {
		resolved, ok := e.store.ResolveChat(ev.ChatID)
		if !ok {
			if e.log != nil {
				e.log.WarnContext(ctx, "dispatch.unresolvable",
					slog.Int64("chat_id", ev.ChatID),
					slog.String("action", string(action)))
			}
			e.send(ctx, ev.ChatID, templates.ActionFailed, nil)
			return
		}
		userID = resolved
	}

	unlock := e.store.LockUser(userID)
	defer unlock()
	defer e.recoverPanic(ctx, ev.ChatID, string(action))

	e.store.BindChat(ev.ChatID, userID)
	e.dispatchAction(ctx, action, userID, ev.ChatID, args)
}

// HandleText routes one free-text message through chat mode, the wizard,
// command synonyms, and calendar date entry, in that priority order.
func (e *Engine) HandleText(ctx context.Context, ev Event) {
	userID := ev.UserID
	if userID == 0 {
		userID, _ = e.store.ResolveChat(ev.ChatID)
	}
	if userID == 0 {
		e.send(ctx, ev.ChatID, templates.ActionFailed, nil)
		return
	}

	unlock := e.store.LockUser(userID)
	defer unlock()
	defer e.recoverPanic(ctx, ev.ChatID, "text")

	e.store.BindChat(ev.ChatID, userID)
	text := strings.TrimSpace(ev.Text)

	if user, ok := e.store.User(userID); ok && user.InChatMode {
		if strings.EqualFold(text, "/menu") {
			e.showMainMenu(ctx, user, ev.ChatID)
			return
		}
		e.handleChatText(ctx, user, ev.ChatID, text, ev.ImageURL)
		return
	}

	if p, ok := e.store.Pending(userID); ok {
		e.handleWizardText(ctx, p, ev.ChatID, text)
		return
	}

	user, ok := e.store.User(userID)
	if !ok {
		e.startRegistration(ctx, userID, ev.ChatID, false)
		return
	}

	if action, ok := textCommands[strings.ToLower(text)]; ok {
		e.dispatchAction(ctx, action, userID, ev.ChatID, nil)
		return
	}
	if user.CalendarState == CalendarSelectingDate && text != "" {
		e.handleDateText(ctx, user, ev.ChatID, text)
		return
	}
	e.send(ctx, ev.ChatID, templates.UnknownCommand, [][]Button{backButton()})
}

// HandleStart handles the transport's conversation-started event: known
// users get the menu, everyone else enters the wizard.
func (e *Engine) HandleStart(ctx context.Context, ev Event) {
	userID := ev.UserID
	if userID == 0 {
		e.send(ctx, ev.ChatID, templates.ActionFailed, nil)
		return
	}

	unlock := e.store.LockUser(userID)
	defer unlock()
	defer e.recoverPanic(ctx, ev.ChatID, "start")

	e.store.BindChat(ev.ChatID, userID)

	if user, ok := e.store.User(userID); ok {
		e.showMainMenu(ctx, user, ev.ChatID)
		return
	}
	if p, ok := e.store.Pending(userID); ok {
		e.promptStep(ctx, p, ev.ChatID)
		return
	}
	e.startRegistration(ctx, userID, ev.ChatID, false)
}

// dispatchAction runs one resolved action for a locked user.
func (e *Engine) dispatchAction(ctx context.Context, action Action, userID, chatID int64, args []string) {
	spec := actionTable[action]

	if spec.wizard {
		p, ok := e.store.Pending(userID)
		if !ok {
			e.send(ctx, chatID, templates.NoPendingData, nil)
			return
		}
		spec.wizHand(ctx, e, p, chatID, args)
		return
	}

	if action == ActionRestart {
		e.store.DeleteUser(userID)
		e.store.DeletePending(userID)
		e.startRegistration(ctx, userID, chatID, true)
		return
	}

	user, ok := e.store.User(userID)
	if !ok {
		keyboard := [][]Button{{{Text: "🔄 Начать регистрацию заново", Payload: string(ActionRestart)}}}
		e.send(ctx, chatID, templates.StudentNotFound, keyboard)
		return
	}

	if spec.access == RequireApproved && !e.gate.HasAccess(ctx, user) {
		e.send(ctx, chatID, templates.AccessRestricted, [][]Button{statusButton()})
		return
	}
	spec.handle(ctx, e, user, chatID, args)
}

// recoverPanic converts a handler panic into the generic failure reply so
// nothing escapes to the transport layer.
func (e *Engine) recoverPanic(ctx context.Context, chatID int64, action string) {
	r := recover()
	if r == nil {
		return
	}
	if e.log != nil {
		e.log.ErrorContext(ctx, "dispatch.panic",
			slog.Int64("chat_id", chatID),
			slog.String("action", action),
			slog.String("error", fmt.Sprint(r)))
	}
	e.send(ctx, chatID, templates.ActionFailed, nil)
}
