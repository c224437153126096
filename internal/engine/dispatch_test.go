package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/studgram/studgram-bot/internal/studgram"
	"github.com/studgram/studgram-bot/internal/templates"
)

func TestCallbackUnroutablePayload(t *testing.T) {
	e, _, sender := newTestEngine(t)
	registerApprovedUser(e, 1, 10)

	e.HandleCallback(context.Background(), Event{ChatID: 10, Payload: "garbage_payload_zzz"})

	if got := sender.last(t).Text; got != templates.ActionFailed {
		t.Errorf("reply = %q", got)
	}
}

func TestCallbackAccessDenied(t *testing.T) {
	e, backend, sender := newTestEngine(t)
	backend.approved = false
	user := registerApprovedUser(e, 1, 10)
	user.ApplicationApproved = false
	user.Status = StatusPending

	e.HandleCallback(context.Background(), Event{ChatID: 10, Payload: string(ActionMenuSchedule)})

	last := sender.last(t)
	if !strings.Contains(last.Text, "Доступ ограничен") {
		t.Errorf("reply = %q", last.Text)
	}
	if len(last.Keyboard) == 0 || last.Keyboard[0][0].Payload != string(ActionMenuStatus) {
		t.Error("no status button offered")
	}
}

func TestCallbackAccessGrantedAfterRemoteCheck(t *testing.T) {
	e, backend, sender := newTestEngine(t)
	backend.approved = true
	user := registerApprovedUser(e, 1, 10)
	user.ApplicationApproved = false
	user.Status = StatusPending

	e.HandleCallback(context.Background(), Event{ChatID: 10, Payload: string(ActionMenuSchedule)})

	if !user.ApplicationApproved {
		t.Error("approval not cached")
	}
	if !strings.Contains(sender.last(t).Text, "Выберите расписание") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
}

func TestCallbackNoUserOffersRestart(t *testing.T) {
	e, _, sender := newTestEngine(t)

	e.HandleCallback(context.Background(), Event{ChatID: 10, UserID: 5, Payload: string(ActionMenuProfile)})

	last := sender.last(t)
	if !strings.Contains(last.Text, "не найден") {
		t.Errorf("reply = %q", last.Text)
	}
	if len(last.Keyboard) == 0 || last.Keyboard[0][0].Payload != string(ActionRestart) {
		t.Error("no restart button offered")
	}
}

func TestCallbackRestartDropsRecordAndStartsWizard(t *testing.T) {
	e, _, sender := newTestEngine(t)
	registerApprovedUser(e, 1, 10)

	e.HandleCallback(context.Background(), Event{ChatID: 10, Payload: string(ActionRestart)})

	if _, ok := e.store.User(1); ok {
		t.Error("user record survived restart")
	}
	if p, ok := e.store.Pending(1); !ok || p.Step != StepFullName {
		t.Error("wizard not restarted")
	}
	if !strings.Contains(sender.last(t).Text, "заново") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
}

func TestCallbackPanicRecovered(t *testing.T) {
	e, _, sender := newTestEngine(t)
	registerApprovedUser(e, 1, 10)
	// Subject handler indexes args[0]; a payload with an empty subject id is
	// still arity-correct, so force a panic through a nil catalog instead.
	e.catalog = nil

	e.HandleCallback(context.Background(), Event{ChatID: 10, Payload: string(ActionMenuAssignments)})

	if got := sender.last(t).Text; got != templates.ActionFailed {
		t.Errorf("reply = %q", got)
	}
}

func TestStatusScreenRevokesApproval(t *testing.T) {
	e, backend, sender := newTestEngine(t)
	backend.approved = false
	user := registerApprovedUser(e, 1, 10)

	e.HandleCallback(context.Background(), Event{ChatID: 10, Payload: string(ActionMenuStatus)})

	if user.ApplicationApproved {
		t.Error("status screen did not revoke approval")
	}
	if !strings.Contains(sender.last(t).Text, "на рассмотрении") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
}

func TestProfileNotFoundRecovery(t *testing.T) {
	e, backend, sender := newTestEngine(t)
	backend.dataErr = &studgram.Error{Kind: studgram.KindNotFound, Status: 404}
	registerApprovedUser(e, 1, 10)

	e.HandleCallback(context.Background(), Event{ChatID: 10, Payload: string(ActionMenuProfile)})

	if _, ok := e.store.User(1); ok {
		t.Error("missing upstream record not deleted locally")
	}
	last := sender.last(t)
	if !strings.Contains(last.Text, "не найден в системе") {
		t.Errorf("reply = %q", last.Text)
	}
	if len(last.Keyboard) == 0 || last.Keyboard[0][0].Payload != string(ActionRestart) {
		t.Error("no restart button offered")
	}
}

func TestChatModeFlow(t *testing.T) {
	e, _, sender := newTestEngine(t)
	user := registerApprovedUser(e, 1, 10)
	ctx := context.Background()

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionMenuChatbot)})
	if !user.InChatMode {
		t.Fatal("chat mode not armed")
	}

	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "когда экзамен?"})
	if !strings.Contains(sender.last(t).Text, "ответ") {
		t.Errorf("assistant reply = %q", sender.last(t).Text)
	}

	// menu_back exits chat mode instead of rendering the menu.
	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionMenuBack)})
	if user.InChatMode {
		t.Error("chat mode still armed")
	}
	if !strings.Contains(sender.last(t).Text, "вышли из режима") {
		t.Errorf("exit reply = %q", sender.last(t).Text)
	}
}

func TestCalendarDateEntry(t *testing.T) {
	e, _, sender := newTestEngine(t)
	user := registerApprovedUser(e, 1, 10)
	ctx := context.Background()

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionMenuCalendar)})
	if user.CalendarState != CalendarSelectingDate {
		t.Fatal("date selection not armed")
	}
	if user.SelectedYear != 2025 || user.SelectedMonth != 6 {
		t.Fatalf("selected month = %d.%d", user.SelectedMonth, user.SelectedYear)
	}

	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "не дата"})
	if sender.last(t).Text != templates.BadDateFormat {
		t.Errorf("reply = %q", sender.last(t).Text)
	}

	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "15.07.2025"})
	if sender.last(t).Text != templates.DateOutsideMonth {
		t.Errorf("reply = %q", sender.last(t).Text)
	}

	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "14.06.2025"})
	if !strings.Contains(sender.last(t).Text, "выходной день") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}

	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "11.06.2025"})
	if !strings.Contains(sender.last(t).Text, "Расписание на 11.06.2025") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
	if user.CalendarState != CalendarViewing {
		t.Error("date selection still armed after schedule shown")
	}
}

func TestCalendarNavigation(t *testing.T) {
	e, _, sender := newTestEngine(t)
	user := registerApprovedUser(e, 1, 10)
	ctx := context.Background()

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionMenuCalendar)})
	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionCalendarPrev)})
	if user.SelectedMonth != 5 {
		t.Errorf("month after prev = %d", user.SelectedMonth)
	}
	if !strings.Contains(sender.last(t).Text, "Май") {
		t.Errorf("calendar text = %q", sender.last(t).Text)
	}

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionCalendarNext)})
	if user.SelectedMonth != 6 {
		t.Errorf("month after next = %d", user.SelectedMonth)
	}
}

func TestCalendarTodayReturnsToCurrentMonth(t *testing.T) {
	e, _, sender := newTestEngine(t)
	user := registerApprovedUser(e, 1, 10)
	ctx := context.Background()

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionMenuCalendar)})
	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionCalendarPrev)})
	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionCalendarPrev)})
	if user.SelectedMonth != 4 {
		t.Fatalf("month after prev x2 = %d", user.SelectedMonth)
	}

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionCalendarToday)})
	if user.SelectedYear != 2025 || user.SelectedMonth != 6 {
		t.Errorf("selected month = %d.%d, want 6.2025", user.SelectedMonth, user.SelectedYear)
	}
	if !strings.Contains(sender.last(t).Text, "Июнь") {
		t.Errorf("reply = %q, want current-month calendar", sender.last(t).Text)
	}
	if user.CalendarState != CalendarSelectingDate {
		t.Error("date selection not re-armed")
	}
}

func TestCalendarTextNavigation(t *testing.T) {
	e, _, sender := newTestEngine(t)
	user := registerApprovedUser(e, 1, 10)
	ctx := context.Background()

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: string(ActionMenuCalendar)})

	// The calendar screen tells the user to type these; they must navigate,
	// not fall through to date parsing.
	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "Предыдущий месяц"})
	if sender.last(t).Text == templates.BadDateFormat {
		t.Fatal("navigation command parsed as a date")
	}
	if user.SelectedMonth != 5 {
		t.Errorf("month after text prev = %d", user.SelectedMonth)
	}
	if !strings.Contains(sender.last(t).Text, "Май") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}

	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "след месяц"})
	if user.SelectedMonth != 6 {
		t.Errorf("month after text next = %d", user.SelectedMonth)
	}
}

func TestInfoRequiresApproval(t *testing.T) {
	e, backend, sender := newTestEngine(t)
	backend.approved = false
	user := registerApprovedUser(e, 1, 10)
	user.ApplicationApproved = false
	user.Status = StatusPending

	e.HandleCallback(context.Background(), Event{ChatID: 10, Payload: string(ActionMenuInfo)})

	if !strings.Contains(sender.last(t).Text, "Доступ ограничен") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
}

func TestTextCommandSynonyms(t *testing.T) {
	e, _, sender := newTestEngine(t)
	registerApprovedUser(e, 1, 10)
	ctx := context.Background()

	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "Расписание"})
	if !strings.Contains(sender.last(t).Text, "Выберите расписание") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}

	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "МЕНЮ"})
	if !strings.Contains(sender.last(t).Text, "Главное меню") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
}

func TestUnknownTextGetsReply(t *testing.T) {
	e, _, sender := newTestEngine(t)
	registerApprovedUser(e, 1, 10)

	before := sender.count()
	e.HandleText(context.Background(), Event{ChatID: 10, UserID: 1, Text: "абракадабра"})
	if sender.count() != before+1 {
		t.Fatalf("sent %d messages, want 1", sender.count()-before)
	}
	if sender.last(t).Text != templates.UnknownCommand {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
}

func TestStartEventForKnownUser(t *testing.T) {
	e, _, sender := newTestEngine(t)
	registerApprovedUser(e, 1, 10)

	e.HandleStart(context.Background(), Event{ChatID: 10, UserID: 1})
	if !strings.Contains(sender.last(t).Text, "Главное меню") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
}

func TestStartEventForNewUser(t *testing.T) {
	e, _, sender := newTestEngine(t)

	e.HandleStart(context.Background(), Event{ChatID: 10, UserID: 1})
	if p, ok := e.store.Pending(1); !ok || p.Step != StepFullName {
		t.Fatal("wizard not started")
	}
	if !strings.Contains(sender.last(t).Text, "Добро пожаловать") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
}
