package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/studgram/studgram-bot/internal/schedule"
	"github.com/studgram/studgram-bot/internal/studgram"
	"github.com/studgram/studgram-bot/internal/templates"
)

func statusButton() []Button {
	return []Button{{Text: "📊 Проверить статус", Payload: string(ActionMenuStatus)}}
}

func backButton() []Button {
	return []Button{{Text: "🔙 Назад в меню", Payload: string(ActionMenuBack)}}
}

func chatExitButton() []Button {
	return []Button{{Text: "🔙 Выйти из чата", Payload: string(ActionMenuBack)}}
}

// showMainMenu renders the menu matching the user's approval state and drops
// chat mode if it was active.
func (e *Engine) showMainMenu(ctx context.Context, user *User, chatID int64) {
	if user.InChatMode {
		user.InChatMode = false
		keyboard := [][]Button{{{Text: "🤖 Вернуться в чат", Payload: string(ActionMenuChatbot)}}}
		e.send(ctx, chatID, templates.ChatExit, keyboard)
		return
	}
	user.CalendarState = CalendarViewing

	approved := user.ApplicationApproved
	var keyboard [][]Button
	if approved {
		keyboard = [][]Button{
			{
				{Text: "📚 Расписание", Payload: string(ActionMenuSchedule)},
				{Text: "📝 Дисциплины", Payload: string(ActionMenuAssignments)},
			},
			{
				{Text: "🤖 Чат-бот", Payload: string(ActionMenuChatbot)},
				{Text: "👤 Мой профиль", Payload: string(ActionMenuProfile)},
			},
		}
	} else {
		keyboard = [][]Button{{
			{Text: "📊 Мой статус", Payload: string(ActionMenuStatus)},
			{Text: "👤 Мой профиль", Payload: string(ActionMenuProfile)},
		}}
	}
	e.send(ctx, chatID, templates.MainMenu(approved), keyboard)
}

// showStatus performs the full approval resync and renders the outcome. This
// is the only path that can revoke a cached approval.
func (e *Engine) showStatus(ctx context.Context, user *User, chatID int64) {
	approved, err := e.gate.Refresh(ctx, user)
	if err != nil && e.log != nil {
		e.log.WarnContext(ctx, "status.refresh",
			slog.Int64("user_id", user.ID),
			slog.String("status", "error"),
			slog.String("error", err.Error()))
	}

	if approved {
		keyboard := [][]Button{{{Text: "🚀 Перейти в меню", Payload: string(ActionMenuBack)}}}
		e.send(ctx, chatID, templates.StatusApproved, keyboard)
		return
	}
	keyboard := [][]Button{
		{{Text: "🔄 Обновить статус", Payload: string(ActionMenuStatus)}},
		{{Text: "👤 Мой профиль", Payload: string(ActionMenuProfile)}},
	}
	e.send(ctx, chatID, templates.StatusPending, keyboard)
}

// showProfile renders the profile from the external record when possible,
// falling back to local data. A record missing upstream triggers the
// re-registration recovery path.
func (e *Engine) showProfile(ctx context.Context, user *User, chatID int64) {
	p := templates.Profile{
		FullName:   user.FullName,
		University: user.University,
		Faculty:    user.Faculty,
		Group:      user.Group,
		SystemID:   user.SystemID,
		Approved:   user.ApplicationApproved,
	}

	if user.SystemID != "" {
		data, err := e.api.StudentData(ctx, user.SystemID)
		if studgram.IsNotFound(err) {
			e.handleStudentNotFound(ctx, user, chatID)
			return
		}
		if err == nil {
			p.FromBackend = true
			if data.FullName != "" {
				p.FullName = data.FullName
			}
			if ref, err := e.api.StudentInstitution(ctx, user.SystemID); err == nil && ref != nil {
				p.University = ref.Title
				p.UniversityAb = ref.Abbreviation
			}
			if ref, err := e.api.StudentFaculty(ctx, user.SystemID); err == nil && ref != nil {
				p.Faculty = ref.Title
				p.FacultyAb = ref.Abbreviation
			}
			if ref, err := e.api.StudentGroup(ctx, user.SystemID); err == nil && ref != nil {
				p.Group = ref.Title
				p.GroupAb = ref.Abbreviation
			}
		}
	}

	keyboard := [][]Button{
		{{Text: "🔄 Обновить данные", Payload: string(ActionProfileRefresh)}},
		backButton(),
	}
	e.send(ctx, chatID, templates.RenderProfile(p), keyboard)
}

// handleStudentNotFound deletes the local record whose upstream copy
// disappeared and offers a fresh registration.
func (e *Engine) handleStudentNotFound(ctx context.Context, user *User, chatID int64) {
	if e.log != nil {
		e.log.ErrorContext(ctx, "profile.not_found",
			slog.Int64("user_id", user.ID),
			slog.String("system_id", user.SystemID))
	}
	e.store.DeleteUser(user.ID)

	keyboard := [][]Button{{{Text: "🔄 Начать регистрацию заново", Payload: string(ActionRestart)}}}
	e.send(ctx, chatID, templates.StudentNotFound, keyboard)
}

func (e *Engine) showScheduleMenu(ctx context.Context, user *User, chatID int64) {
	keyboard := [][]Button{
		{
			{Text: "📅 Сегодня", Payload: string(ActionScheduleToday)},
			{Text: "📅 Завтра", Payload: string(ActionScheduleTomorrow)},
		},
		{
			{Text: "🗓️ Календарь", Payload: string(ActionMenuCalendar)},
			{Text: "🔙 Назад", Payload: string(ActionMenuBack)},
		},
	}
	e.send(ctx, chatID, templates.ScheduleMenu, keyboard)
}

// showScheduleFor renders the lesson list of one date and leaves date
// selection mode.
func (e *Engine) showScheduleFor(ctx context.Context, user *User, chatID int64, date time.Time) {
	text := templates.RenderSchedule(schedule.Lessons(date), date)
	keyboard := [][]Button{
		{{Text: "🗓️ Календарь", Payload: string(ActionMenuCalendar)}},
		backButton(),
	}
	user.CalendarState = CalendarViewing
	e.send(ctx, chatID, text, keyboard)
}

// showCalendar renders the selected month and arms date selection mode.
func (e *Engine) showCalendar(ctx context.Context, user *User, chatID int64) {
	now := e.now()
	if user.SelectedYear == 0 {
		user.SelectedYear = now.Year()
		user.SelectedMonth = now.Month()
	}
	days := schedule.MonthCalendar(user.SelectedYear, user.SelectedMonth, now)
	text := templates.RenderCalendar(days, user.SelectedYear, user.SelectedMonth)

	keyboard := [][]Button{
		{
			{Text: "⬅️ Предыдущий месяц", Payload: string(ActionCalendarPrev)},
			{Text: "➡️ Следующий месяц", Payload: string(ActionCalendarNext)},
		},
		{{Text: "📅 Сегодня", Payload: string(ActionCalendarToday)}},
		backButton(),
	}
	user.CalendarState = CalendarSelectingDate
	e.send(ctx, chatID, text, keyboard)
}

// shiftCalendar moves the selected month by delta months and re-renders.
func (e *Engine) shiftCalendar(ctx context.Context, user *User, chatID int64, delta int) {
	if user.SelectedYear == 0 {
		now := e.now()
		user.SelectedYear = now.Year()
		user.SelectedMonth = now.Month()
	}
	shifted := time.Date(user.SelectedYear, user.SelectedMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	user.SelectedYear = shifted.Year()
	user.SelectedMonth = shifted.Month()
	e.showCalendar(ctx, user, chatID)
}

// handleDateText consumes free text while the calendar is armed. The date
// must parse, fall inside the selected month, and be a study day.
func (e *Engine) handleDateText(ctx context.Context, user *User, chatID int64, text string) {
	date, ok := schedule.ParseDate(text)
	if !ok {
		e.send(ctx, chatID, templates.BadDateFormat, nil)
		return
	}
	if date.Year() != user.SelectedYear || date.Month() != user.SelectedMonth {
		e.send(ctx, chatID, templates.DateOutsideMonth, nil)
		return
	}
	if !schedule.IsStudyDay(date) {
		e.send(ctx, chatID, templates.WeekendDate(date), nil)
		return
	}
	e.showScheduleFor(ctx, user, chatID, date)
}

// showSubjects lists the student's disciplines with content previews.
func (e *Engine) showSubjects(ctx context.Context, user *User, chatID int64) {
	if user.SystemID == "" {
		e.send(ctx, chatID, templates.NoSubjects, nil)
		return
	}
	subjects, err := e.catalog.Subjects(ctx, user.SystemID)
	if err != nil {
		e.send(ctx, chatID, templates.SubjectsUnavailable, nil)
		return
	}
	if len(subjects) == 0 {
		e.send(ctx, chatID, templates.NoSubjects, nil)
		return
	}

	entries := make([]templates.SubjectEntry, 0, len(subjects))
	for _, s := range subjects {
		entry := templates.SubjectEntry{Title: s.Title, Abbreviation: s.Abbreviation}
		if content, err := e.api.SubjectContent(ctx, user.SystemID, s.ID); err == nil && content != nil {
			entry.Content = content.Content
		}
		entries = append(entries, entry)
	}

	keyboard := [][]Button{
		{{Text: "🔄 Обновить", Payload: string(ActionMenuAssignments)}},
		backButton(),
	}
	e.send(ctx, chatID, templates.RenderSubjects(entries), keyboard)
}

// showSubject renders one discipline's detail.
func (e *Engine) showSubject(ctx context.Context, user *User, chatID int64, subjectID string) {
	if user.SystemID == "" {
		e.send(ctx, chatID, templates.NoSubjects, nil)
		return
	}
	content, err := e.api.SubjectContent(ctx, user.SystemID, subjectID)
	if err != nil || content == nil {
		e.send(ctx, chatID, templates.SubjectsUnavailable, nil)
		return
	}
	entries := []templates.SubjectEntry{{Title: content.Title, Content: content.Content}}
	e.send(ctx, chatID, templates.RenderSubjects(entries), [][]Button{backButton()})
}

// startChat arms the assistant chat mode.
func (e *Engine) startChat(ctx context.Context, user *User, chatID int64) {
	if e.assistant == nil {
		e.send(ctx, chatID, templates.ChatError, nil)
		return
	}
	user.InChatMode = true
	e.send(ctx, chatID, templates.ChatWelcome, [][]Button{chatExitButton()})
}

// handleChatText forwards one chat-mode message to the assistant.
func (e *Engine) handleChatText(ctx context.Context, user *User, chatID int64, text, image string) {
	if e.assistant == nil {
		e.send(ctx, chatID, templates.ChatError, nil)
		return
	}
	if text == "" && image == "" {
		e.send(ctx, chatID, templates.ChatEmptyMessage, nil)
		return
	}

	e.send(ctx, chatID, templates.ChatProcessing, nil)

	var answer string
	var err error
	if image != "" {
		prompt := text
		if prompt == "" {
			prompt = "Что изображено на картинке?"
		}
		answer, err = e.assistant.CompleteWithImage(ctx, prompt, image)
	} else {
		answer, err = e.assistant.Complete(ctx, text)
	}
	if err != nil {
		if e.log != nil {
			e.log.WarnContext(ctx, "chat.completion",
				slog.Int64("user_id", user.ID),
				slog.String("status", "error"),
				slog.String("error", err.Error()))
		}
		e.send(ctx, chatID, templates.ChatError, [][]Button{chatExitButton()})
		return
	}
	e.send(ctx, chatID, templates.ChatReply(answer), [][]Button{chatExitButton()})
}

func (e *Engine) showInfo(ctx context.Context, user *User, chatID int64) {
	e.send(ctx, chatID, templates.UniversityInfo, [][]Button{backButton()})
}
