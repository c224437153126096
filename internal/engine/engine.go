package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/studgram/studgram-bot/internal/logger"
	"github.com/studgram/studgram-bot/internal/studgram"
)

// Backend is the slice of the external registration API the engine commits
// and reads student records through.
type Backend interface {
	StatusFetcher
	RegisterStudent(ctx context.Context, maxID int64, fullName string) (string, error)
	StudentByMaxID(ctx context.Context, maxID int64) (string, error)
	StudentData(ctx context.Context, studentID string) (*studgram.Student, error)
	UpdateStudent(ctx context.Context, studentID string, fields map[string]any) error
	LinkInstitution(ctx context.Context, studentID, institutionID string) error
	LinkFaculty(ctx context.Context, studentID, facultyID string) error
	LinkGroup(ctx context.Context, studentID, groupID string) error
	StudentInstitution(ctx context.Context, studentID string) (*studgram.Ref, error)
	StudentFaculty(ctx context.Context, studentID string) (*studgram.Ref, error)
	StudentGroup(ctx context.Context, studentID string) (*studgram.Ref, error)
	SubjectContent(ctx context.Context, studentID, subjectID string) (*studgram.SubjectContent, error)
}

// Catalog serves the cached reference data the wizard and subject screens
// read.
type Catalog interface {
	Universities(ctx context.Context) ([]studgram.Ref, error)
	Faculties(ctx context.Context, institutionID string) ([]studgram.Ref, error)
	Groups(ctx context.Context, institutionID, facultyID string) ([]studgram.Ref, error)
	Subjects(ctx context.Context, studentID string) ([]studgram.Subject, error)
}

// Assistant answers chat-mode prompts.
type Assistant interface {
	Complete(ctx context.Context, text string) (string, error)
	CompleteWithImage(ctx context.Context, text, image string) (string, error)
}

// Button is one inline keyboard button.
type Button struct {
	Text    string
	Payload string
}

// Sender delivers outbound replies. A nil keyboard sends plain text.
type Sender interface {
	Send(chatID int64, text string, keyboard [][]Button) error
}

// Engine routes inbound events through the wizard, the dispatcher, and the
// feature handlers. All per-user work is serialized by the Store's keyed
// locks.
type Engine struct {
	store     *Store
	gate      *Gate
	api       Backend
	catalog   Catalog
	assistant Assistant
	sender    Sender
	log       *slog.Logger
	now       func() time.Time
}

// New wires the engine. assistant may be nil when chat mode is not
// configured; the chatbot action then reports the feature as unavailable.
func New(api Backend, catalog Catalog, assistant Assistant, sender Sender) *Engine {
	return &Engine{
		store:     NewStore(),
		gate:      NewGate(api),
		api:       api,
		catalog:   catalog,
		assistant: assistant,
		sender:    sender,
		log:       logger.Component("engine"),
		now:       time.Now,
	}
}

// Store exposes the state store, mainly for the transport layer's chat
// binding on startup events.
func (e *Engine) Store() *Store { return e.store }

// send delivers one reply, logging delivery failures instead of propagating
// them into handlers.
func (e *Engine) send(ctx context.Context, chatID int64, text string, keyboard [][]Button) {
	if err := e.sender.Send(chatID, text, keyboard); err != nil && e.log != nil {
		e.log.ErrorContext(ctx, "engine.send",
			slog.Int64("chat_id", chatID),
			slog.String("status", "error"),
			slog.String("error", err.Error()))
	}
}
