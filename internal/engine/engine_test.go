package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/studgram/studgram-bot/internal/studgram"
)

type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard [][]Button
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingSender) Send(chatID int64, text string, keyboard [][]Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return nil
}

func (r *recordingSender) last(t *testing.T) sentMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return r.sent[len(r.sent)-1]
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// fakeBackend is an in-memory stand-in for the external registration API.
type fakeBackend struct {
	mu            sync.Mutex
	approved      bool
	statusErr     error
	students      map[int64]string // maxID -> systemID
	registerErr   error
	lookupErr     error
	linkErr       error
	registrations int
	statusCalls   int
	dataErr       error
	institution   *studgram.Ref
	faculty       *studgram.Ref
	group         *studgram.Ref
	content       map[string]*studgram.SubjectContent
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		students: make(map[int64]string),
		content:  make(map[string]*studgram.SubjectContent),
	}
}

func (f *fakeBackend) ApplicationStatus(ctx context.Context, studentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.approved, f.statusErr
}

func (f *fakeBackend) RegisterStudent(ctx context.Context, maxID int64, fullName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.registrations++
	id := "sys-" + strings.Repeat("x", f.registrations)
	f.students[maxID] = id
	return id, nil
}

func (f *fakeBackend) StudentByMaxID(ctx context.Context, maxID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	return f.students[maxID], nil
}

func (f *fakeBackend) StudentData(ctx context.Context, studentID string) (*studgram.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dataErr != nil {
		return nil, f.dataErr
	}
	return &studgram.Student{ID: studentID, FullName: "Иванов Иван"}, nil
}

func (f *fakeBackend) UpdateStudent(ctx context.Context, studentID string, fields map[string]any) error {
	return nil
}

func (f *fakeBackend) LinkInstitution(ctx context.Context, studentID, institutionID string) error {
	return f.linkErr
}

func (f *fakeBackend) LinkFaculty(ctx context.Context, studentID, facultyID string) error {
	return f.linkErr
}

func (f *fakeBackend) LinkGroup(ctx context.Context, studentID, groupID string) error {
	return f.linkErr
}

func (f *fakeBackend) StudentInstitution(ctx context.Context, studentID string) (*studgram.Ref, error) {
	return f.institution, nil
}

func (f *fakeBackend) StudentFaculty(ctx context.Context, studentID string) (*studgram.Ref, error) {
	return f.faculty, nil
}

func (f *fakeBackend) StudentGroup(ctx context.Context, studentID string) (*studgram.Ref, error) {
	return f.group, nil
}

func (f *fakeBackend) SubjectContent(ctx context.Context, studentID, subjectID string) (*studgram.SubjectContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content[subjectID], nil
}

// fakeCatalog serves fixed reference data without the cache layer.
type fakeCatalog struct {
	universities []studgram.Ref
	faculties    []studgram.Ref
	groups       []studgram.Ref
	subjects     []studgram.Subject
}

func (f *fakeCatalog) Universities(ctx context.Context) ([]studgram.Ref, error) {
	return f.universities, nil
}

func (f *fakeCatalog) Faculties(ctx context.Context, institutionID string) ([]studgram.Ref, error) {
	return f.faculties, nil
}

func (f *fakeCatalog) Groups(ctx context.Context, institutionID, facultyID string) ([]studgram.Ref, error) {
	return f.groups, nil
}

func (f *fakeCatalog) Subjects(ctx context.Context, studentID string) ([]studgram.Subject, error) {
	return f.subjects, nil
}

type fakeAssistant struct {
	answer string
	err    error
}

func (f *fakeAssistant) Complete(ctx context.Context, text string) (string, error) {
	return f.answer, f.err
}

func (f *fakeAssistant) CompleteWithImage(ctx context.Context, text, image string) (string, error) {
	return f.answer, f.err
}

func defaultCatalog() *fakeCatalog {
	return &fakeCatalog{
		universities: []studgram.Ref{{ID: "u1", Title: "Московский университет", Abbreviation: "МГУ"}},
		faculties:    []studgram.Ref{{ID: "f1", Title: "Физический факультет", Abbreviation: "Физфак"}},
		groups:       []studgram.Ref{{ID: "g1", Title: "ИВТ-21"}},
	}
}

func newTestEngine(t *testing.T) (*Engine, *fakeBackend, *recordingSender) {
	t.Helper()
	backend := newFakeBackend()
	sender := &recordingSender{}
	e := New(backend, defaultCatalog(), &fakeAssistant{answer: "ответ"}, sender)
	e.now = func() time.Time {
		return time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	}
	return e, backend, sender
}

// registerApprovedUser seeds a committed, approved user directly.
func registerApprovedUser(e *Engine, userID, chatID int64) *User {
	u := &User{
		ID:                  userID,
		ChatID:              chatID,
		FullName:            "Иванов Иван",
		University:          "Московский университет",
		Faculty:             "Физический факультет",
		Group:               "ИВТ-21",
		SystemID:            "sys-1",
		Role:                RoleStudent,
		Status:              StatusApproved,
		ApplicationApproved: true,
		Synced:              true,
		CalendarState:       CalendarViewing,
	}
	e.store.users[userID] = u
	e.store.chats[chatID] = userID
	return u
}
