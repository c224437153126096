package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func TestValidateFullName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"Иван Петров", true},
		{"Иванов Иван Иванович", true},
		{"Иван", false},
		{"Один Два Три Четыре", false},
		{"Иван Петров2", false},
		{"Ив А", false},
		{"", false},
		{"   ", false},
	}
	for _, tc := range tests {
		if _, ok := validateFullName(tc.name); ok != tc.ok {
			t.Errorf("validateFullName(%q) = %v, want %v", tc.name, ok, tc.ok)
		}
	}
}

func TestWizardFullFlow(t *testing.T) {
	e, backend, sender := newTestEngine(t)
	ctx := context.Background()

	// First contact from an unknown user opens the wizard.
	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "привет"})
	if p, ok := e.store.Pending(1); !ok || p.Step != StepFullName {
		t.Fatal("wizard not started")
	}

	// Invalid name keeps the step.
	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "Иван"})
	if p, _ := e.store.Pending(1); p.Step != StepFullName {
		t.Fatal("invalid name advanced the step")
	}

	// Valid name moves to university selection.
	e.HandleText(ctx, Event{ChatID: 10, UserID: 1, Text: "Иван Петров"})
	p, _ := e.store.Pending(1)
	if p.Step != StepUniversity {
		t.Fatalf("step = %s, want university", p.Step)
	}
	last := sender.last(t)
	if len(last.Keyboard) == 0 {
		t.Fatal("no university keyboard sent")
	}

	// Press the university button the engine just produced.
	e.HandleCallback(ctx, Event{ChatID: 10, Payload: last.Keyboard[0][0].Payload})
	p, _ = e.store.Pending(1)
	if p.Step != StepFaculty || p.InstitutionID != "u1" {
		t.Fatalf("after university: step=%s institution=%s", p.Step, p.InstitutionID)
	}

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: sender.last(t).Keyboard[0][0].Payload})
	p, _ = e.store.Pending(1)
	if p.Step != StepGroup || p.FacultyID != "f1" {
		t.Fatalf("after faculty: step=%s faculty=%s", p.Step, p.FacultyID)
	}

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: sender.last(t).Keyboard[0][0].Payload})
	p, _ = e.store.Pending(1)
	if p.Step != StepConfirmation || p.GroupID != "g1" {
		t.Fatalf("after group: step=%s group=%s", p.Step, p.GroupID)
	}

	// Confirm.
	e.HandleCallback(ctx, Event{ChatID: 10, Payload: Encode(ActionConfirmYes, "1")})
	if _, ok := e.store.Pending(1); ok {
		t.Error("pending survived commit")
	}
	user, ok := e.store.User(1)
	if !ok {
		t.Fatal("no user record after commit")
	}
	if user.Status != StatusPending || user.ApplicationApproved {
		t.Errorf("user = %+v", user)
	}
	if user.SystemID == "" || !user.Synced {
		t.Errorf("commit not synchronized: %+v", user)
	}
	if backend.registrations != 1 {
		t.Errorf("registrations = %d, want 1", backend.registrations)
	}
	if !strings.Contains(sender.last(t).Text, "Регистрация завершена") {
		t.Errorf("completion text = %q", sender.last(t).Text)
	}
}

func TestWizardRejectsOutOfOrderSelection(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	e.store.SetPending(&Pending{UserID: 1, ChatID: 10, Step: StepFullName})

	// A stale group button pressed while the wizard expects a name.
	e.HandleCallback(ctx, Event{ChatID: 10, Payload: EncodeSelection(ActionGroup, 1, "ИВТ-21")})

	p, _ := e.store.Pending(1)
	if p.Step != StepFullName {
		t.Errorf("step advanced to %s", p.Step)
	}
	if p.GroupID != "" {
		t.Error("group stored out of order")
	}
}

func TestWizardFacultyRequiresInstitution(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	// Step says faculty but the parent id is missing; must not advance.
	e.store.SetPending(&Pending{UserID: 1, ChatID: 10, Step: StepFaculty})
	e.HandleCallback(ctx, Event{ChatID: 10, Payload: EncodeSelection(ActionFaculty, 1, "Физфак")})

	p, _ := e.store.Pending(1)
	if p.FacultyID != "" || p.Step != StepFaculty {
		t.Errorf("selection accepted without institution: %+v", p)
	}
}

func TestWizardConfirmNoWipesFields(t *testing.T) {
	e, _, sender := newTestEngine(t)
	ctx := context.Background()

	e.store.SetPending(&Pending{
		UserID: 1, ChatID: 10, Step: StepConfirmation,
		FullName: "Иван Петров", University: "МГУ", InstitutionID: "u1",
		Faculty: "Физфак", FacultyID: "f1", Group: "ИВТ-21", GroupID: "g1",
	})

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: Encode(ActionConfirmNo, "1")})

	p, ok := e.store.Pending(1)
	if !ok {
		t.Fatal("pending dropped")
	}
	if p.Step != StepFullName || p.FullName != "" || p.InstitutionID != "" || p.GroupID != "" {
		t.Errorf("fields not wiped: %+v", p)
	}
	if !strings.Contains(sender.last(t).Text, "заново") {
		t.Errorf("restart prompt = %q", sender.last(t).Text)
	}
}

func TestWizardCommitFailureKeepsLocalRecord(t *testing.T) {
	e, backend, sender := newTestEngine(t)
	backend.registerErr = contextError("registration down")
	ctx := context.Background()

	e.store.SetPending(&Pending{
		UserID: 1, ChatID: 10, Step: StepConfirmation,
		FullName: "Иван Петров", University: "МГУ", InstitutionID: "u1",
		Faculty: "Физфак", FacultyID: "f1", Group: "ИВТ-21", GroupID: "g1",
	})

	e.HandleCallback(ctx, Event{ChatID: 10, Payload: Encode(ActionConfirmYes, "1")})

	user, ok := e.store.User(1)
	if !ok {
		t.Fatal("failed commit dropped user input")
	}
	if user.Synced || user.SystemID != "" {
		t.Errorf("user marked synced after failure: %+v", user)
	}
	if !strings.Contains(sender.last(t).Text, "Не удалось полностью синхронизировать") {
		t.Errorf("completion text = %q", sender.last(t).Text)
	}
}

func TestConcurrentConfirmCreatesOneUser(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	ctx := context.Background()

	e.store.SetPending(&Pending{
		UserID: 1, ChatID: 10, Step: StepConfirmation,
		FullName: "Иван Петров", University: "МГУ", InstitutionID: "u1",
		Faculty: "Физфак", FacultyID: "f1", Group: "ИВТ-21", GroupID: "g1",
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.HandleCallback(ctx, Event{ChatID: 10, Payload: Encode(ActionConfirmYes, "1")})
		}()
	}
	wg.Wait()

	if _, ok := e.store.User(1); !ok {
		t.Fatal("no user record")
	}
	if backend.registrations != 1 {
		t.Errorf("registrations = %d, want 1", backend.registrations)
	}
}

// contextError is a trivial error for fakes.
type contextError string

func (c contextError) Error() string { return string(c) }
