package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/studgram/studgram-bot/internal/directory"
	"github.com/studgram/studgram-bot/internal/studgram"
	"github.com/studgram/studgram-bot/internal/templates"
)

// validateFullName checks a registration name: 2 or 3 whitespace-separated
// tokens, each alphabetic, total length at least 5 runes.
func validateFullName(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	parts := strings.Fields(trimmed)
	if len(parts) < 2 {
		return templates.NameTooFewParts, false
	}
	if len(parts) > 3 {
		return templates.NameTooManyParts, false
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsLetter(r) {
				return templates.NameNotAlpha, false
			}
		}
	}
	if len([]rune(trimmed)) < 5 {
		return templates.NameTooShort, false
	}
	return "", true
}

// startRegistration opens a wizard session and prompts for the full name.
// Any existing session for the user is discarded.
func (e *Engine) startRegistration(ctx context.Context, userID, chatID int64, restarted bool) {
	p := &Pending{UserID: userID, ChatID: chatID, Step: StepFullName}
	e.store.SetPending(p)

	if e.log != nil {
		e.log.InfoContext(ctx, "wizard.start",
			slog.Int64("user_id", userID),
			slog.Bool("restart", restarted))
	}
	if restarted {
		e.send(ctx, chatID, templates.RestartRegistration, nil)
		return
	}
	e.send(ctx, chatID, templates.Welcome, nil)
}

// handleWizardText consumes free text while a wizard session is open. Only
// the full-name step accepts text; on any other step the current prompt is
// repeated.
func (e *Engine) handleWizardText(ctx context.Context, p *Pending, chatID int64, text string) {
	if p.Step != StepFullName {
		e.promptStep(ctx, p, chatID)
		return
	}
	if msg, ok := validateFullName(text); !ok {
		e.send(ctx, chatID, msg, nil)
		return
	}
	p.FullName = strings.TrimSpace(text)
	p.Step = StepUniversity
	e.promptStep(ctx, p, chatID)
}

// promptStep re-sends the prompt matching the session's current step.
func (e *Engine) promptStep(ctx context.Context, p *Pending, chatID int64) {
	switch p.Step {
	case StepFullName:
		e.send(ctx, chatID, templates.Welcome, nil)
	case StepUniversity:
		e.sendUniversityChoice(ctx, p, chatID)
	case StepFaculty:
		e.sendFacultyChoice(ctx, p, chatID)
	case StepGroup:
		e.sendGroupChoice(ctx, p, chatID)
	case StepConfirmation:
		e.sendConfirmation(ctx, p, chatID)
	}
}

func (e *Engine) sendUniversityChoice(ctx context.Context, p *Pending, chatID int64) {
	refs, err := e.catalog.Universities(ctx)
	if err != nil || len(refs) == 0 {
		e.send(ctx, chatID, templates.NoUniversities, nil)
		return
	}
	keyboard := selectionKeyboard(ActionUniversity, p.UserID, refs)
	e.send(ctx, chatID, templates.ChooseUniversity, keyboard)
}

func (e *Engine) sendFacultyChoice(ctx context.Context, p *Pending, chatID int64) {
	refs, err := e.catalog.Faculties(ctx, p.InstitutionID)
	if err != nil || len(refs) == 0 {
		e.send(ctx, chatID, templates.FacultiesUnavailable, nil)
		return
	}
	keyboard := selectionKeyboard(ActionFaculty, p.UserID, refs)
	e.send(ctx, chatID, templates.ChooseFaculty(p.University), keyboard)
}

func (e *Engine) sendGroupChoice(ctx context.Context, p *Pending, chatID int64) {
	refs, err := e.catalog.Groups(ctx, p.InstitutionID, p.FacultyID)
	if err != nil || len(refs) == 0 {
		e.send(ctx, chatID, templates.GroupsUnavailable, nil)
		return
	}
	keyboard := selectionKeyboard(ActionGroup, p.UserID, refs)
	e.send(ctx, chatID, templates.ChooseGroup(p.University, p.Faculty), keyboard)
}

func (e *Engine) sendConfirmation(ctx context.Context, p *Pending, chatID int64) {
	text := templates.Confirmation(p.FullName, p.University, p.Faculty, p.Group)
	keyboard := [][]Button{{
		{Text: "✅ Да, все верно", Payload: Encode(ActionConfirmYes, formatUserID(p.UserID))},
		{Text: "❌ Нет, исправить", Payload: Encode(ActionConfirmNo, formatUserID(p.UserID))},
	}}
	e.send(ctx, chatID, text, keyboard)
}

// handleUniversitySelection accepts a university pick. Selections arriving
// while the session is on another step are rejected without advancing.
func (e *Engine) handleUniversitySelection(ctx context.Context, p *Pending, chatID int64, label string) {
	if p.Step != StepUniversity {
		e.rejectStaleSelection(ctx, p, chatID, ActionUniversity)
		return
	}
	refs, err := e.catalog.Universities(ctx)
	if err != nil {
		e.send(ctx, chatID, templates.NoUniversities, nil)
		return
	}
	ref, ok := directory.Find(refs, label)
	if !ok {
		e.send(ctx, chatID, templates.UniversityNotFound, nil)
		return
	}
	p.University = ref.Title
	p.InstitutionID = ref.ID
	p.Step = StepFaculty
	e.promptStep(ctx, p, chatID)
}

// handleFacultySelection accepts a faculty pick; the institution must
// already be resolved so fields are only ever validated in order.
func (e *Engine) handleFacultySelection(ctx context.Context, p *Pending, chatID int64, label string) {
	if p.Step != StepFaculty || p.InstitutionID == "" {
		e.rejectStaleSelection(ctx, p, chatID, ActionFaculty)
		return
	}
	refs, err := e.catalog.Faculties(ctx, p.InstitutionID)
	if err != nil {
		e.send(ctx, chatID, templates.FacultiesUnavailable, nil)
		return
	}
	ref, ok := directory.Find(refs, label)
	if !ok {
		e.send(ctx, chatID, templates.FacultiesUnavailable, nil)
		return
	}
	p.Faculty = ref.Title
	p.FacultyID = ref.ID
	p.Step = StepGroup
	e.promptStep(ctx, p, chatID)
}

// handleGroupSelection accepts a group pick; institution and faculty must
// already be resolved.
func (e *Engine) handleGroupSelection(ctx context.Context, p *Pending, chatID int64, label string) {
	if p.Step != StepGroup || p.InstitutionID == "" || p.FacultyID == "" {
		e.rejectStaleSelection(ctx, p, chatID, ActionGroup)
		return
	}
	refs, err := e.catalog.Groups(ctx, p.InstitutionID, p.FacultyID)
	if err != nil {
		e.send(ctx, chatID, templates.GroupsUnavailable, nil)
		return
	}
	ref, ok := directory.Find(refs, label)
	if !ok {
		e.send(ctx, chatID, templates.GroupsUnavailable, nil)
		return
	}
	p.Group = ref.Title
	p.GroupID = ref.ID
	p.Step = StepConfirmation
	e.promptStep(ctx, p, chatID)
}

// handleConfirmYes commits the session. A duplicate confirmation finds the
// session already promoted and is answered without a second commit.
func (e *Engine) handleConfirmYes(ctx context.Context, p *Pending, chatID int64) {
	if p.Step != StepConfirmation {
		e.rejectStaleSelection(ctx, p, chatID, ActionConfirmYes)
		return
	}
	e.completeRegistration(ctx, p, chatID)
}

// handleConfirmNo wipes the collected fields and restarts from the name.
func (e *Engine) handleConfirmNo(ctx context.Context, p *Pending, chatID int64) {
	*p = Pending{UserID: p.UserID, ChatID: p.ChatID, Step: StepFullName}
	e.send(ctx, chatID, templates.RestartRegistration, nil)
}

// rejectStaleSelection answers a selection that belongs to a different step,
// keeping the session unchanged and re-prompting the current step.
func (e *Engine) rejectStaleSelection(ctx context.Context, p *Pending, chatID int64, action Action) {
	if e.log != nil {
		e.log.WarnContext(ctx, "wizard.stale_selection",
			slog.Int64("user_id", p.UserID),
			slog.String("action", string(action)),
			slog.String("step", string(p.Step)))
	}
	e.promptStep(ctx, p, chatID)
}

// completeRegistration performs the commit: the external registration calls,
// then the atomic pending→user promotion. External failure never drops the
// user's input; the record is created locally and marked unsynchronized.
func (e *Engine) completeRegistration(ctx context.Context, p *Pending, chatID int64) {
	systemID, synced := e.registerUpstream(ctx, p)

	now := e.now()
	user := &User{
		ID:                  p.UserID,
		ChatID:              chatID,
		FullName:            p.FullName,
		University:          p.University,
		Faculty:             p.Faculty,
		Group:               p.Group,
		SystemID:            systemID,
		Role:                RoleStudent,
		Status:              StatusPending,
		ApplicationApproved: false,
		Synced:              synced,
		CalendarState:       CalendarViewing,
		SelectedYear:        now.Year(),
		SelectedMonth:       now.Month(),
	}

	if !e.store.PromotePending(p.UserID, user) {
		if e.log != nil {
			e.log.WarnContext(ctx, "wizard.commit",
				slog.Int64("user_id", p.UserID),
				slog.String("status", "duplicate"))
		}
		e.send(ctx, chatID, templates.NoPendingData, nil)
		return
	}

	if e.log != nil {
		e.log.InfoContext(ctx, "wizard.commit",
			slog.Int64("user_id", p.UserID),
			slog.String("system_id", systemID),
			slog.Bool("synced", synced))
	}

	keyboard := [][]Button{
		{{Text: "📊 Мой статус", Payload: string(ActionMenuStatus)}},
		{{Text: "👤 Мой профиль", Payload: string(ActionMenuProfile)}},
	}
	e.send(ctx, chatID, templates.RegistrationDone(p.Faculty, synced), keyboard)
}

// registerUpstream looks up or creates the student record and links its
// affiliation. It returns the external id when one was obtained and whether
// every call succeeded.
func (e *Engine) registerUpstream(ctx context.Context, p *Pending) (string, bool) {
	synced := true

	systemID, err := e.api.StudentByMaxID(ctx, p.UserID)
	if err != nil {
		return "", false
	}
	if systemID == "" {
		systemID, err = e.api.RegisterStudent(ctx, p.UserID, p.FullName)
		if err != nil {
			return "", false
		}
	} else if err := e.api.UpdateStudent(ctx, systemID, map[string]any{"fullName": p.FullName}); err != nil {
		synced = false
	}

	if err := e.api.LinkInstitution(ctx, systemID, p.InstitutionID); err != nil {
		synced = false
	}
	if p.FacultyID != "" {
		if err := e.api.LinkFaculty(ctx, systemID, p.FacultyID); err != nil {
			synced = false
		}
	}
	if err := e.api.LinkGroup(ctx, systemID, p.GroupID); err != nil {
		synced = false
	}
	return systemID, synced
}

// selectionKeyboard lays out catalog entries two per row, each carrying the
// acting user's id in its payload.
func selectionKeyboard(action Action, userID int64, refs []studgram.Ref) [][]Button {
	var keyboard [][]Button
	var row []Button
	for _, ref := range refs {
		label := directory.Label(ref)
		row = append(row, Button{Text: label, Payload: EncodeSelection(action, userID, label)})
		if len(row) == 2 {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	return keyboard
}

func formatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
