// Package directory serves institution, faculty, and group catalogs through a
// TTL cache so wizard keyboards do not hammer the backend on every step.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/studgram/studgram-bot/internal/cache"
	"github.com/studgram/studgram-bot/internal/studgram"
)

// Catalog is the subset of the backend API the directory reads from.
type Catalog interface {
	Institutions(ctx context.Context) ([]studgram.Ref, error)
	Faculties(ctx context.Context, institutionID string) ([]studgram.Ref, error)
	Groups(ctx context.Context, institutionID, facultyID string) ([]studgram.Ref, error)
	Subjects(ctx context.Context, studentID string) ([]studgram.Subject, error)
}

// Directory caches catalog reads. Empty catalogs are cached like any other
// result, so a backend with no data is not re-queried until the TTL lapses.
type Directory struct {
	catalog  Catalog
	refs     *cache.Cache[[]studgram.Ref]
	subjects *cache.Cache[[]studgram.Subject]
}

// New builds a Directory with separate TTLs for reference catalogs and for
// per-student subject lists.
func New(catalog Catalog, refTTL, subjectsTTL time.Duration) *Directory {
	return &Directory{
		catalog:  catalog,
		refs:     cache.New[[]studgram.Ref](refTTL),
		subjects: cache.New[[]studgram.Subject](subjectsTTL),
	}
}

// Universities returns the cached institution catalog.
func (d *Directory) Universities(ctx context.Context) ([]studgram.Ref, error) {
	return d.cachedRefs(ctx, "universities", func(ctx context.Context) ([]studgram.Ref, error) {
		return d.catalog.Institutions(ctx)
	})
}

// Faculties returns the cached faculty catalog of one institution.
func (d *Directory) Faculties(ctx context.Context, institutionID string) ([]studgram.Ref, error) {
	key := fmt.Sprintf("faculties_%s", institutionID)
	return d.cachedRefs(ctx, key, func(ctx context.Context) ([]studgram.Ref, error) {
		return d.catalog.Faculties(ctx, institutionID)
	})
}

// Groups returns the cached group catalog of one faculty.
func (d *Directory) Groups(ctx context.Context, institutionID, facultyID string) ([]studgram.Ref, error) {
	key := fmt.Sprintf("groups_%s_%s", institutionID, facultyID)
	return d.cachedRefs(ctx, key, func(ctx context.Context) ([]studgram.Ref, error) {
		return d.catalog.Groups(ctx, institutionID, facultyID)
	})
}

func (d *Directory) cachedRefs(ctx context.Context, key string, fetch func(context.Context) ([]studgram.Ref, error)) ([]studgram.Ref, error) {
	if refs, ok := d.refs.Get(key); ok {
		return refs, nil
	}
	refs, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	d.refs.Set(key, refs)
	return refs, nil
}

// Subjects returns the cached subject list of one student.
func (d *Directory) Subjects(ctx context.Context, studentID string) ([]studgram.Subject, error) {
	key := "subjects_" + studentID
	if subjects, ok := d.subjects.Get(key); ok {
		return subjects, nil
	}
	subjects, err := d.catalog.Subjects(ctx, studentID)
	if err != nil {
		return nil, err
	}
	d.subjects.Set(key, subjects)
	return subjects, nil
}

// Find resolves a displayed label back to its catalog entry. The label must
// match a title or abbreviation exactly; near matches are rejected.
func Find(refs []studgram.Ref, label string) (studgram.Ref, bool) {
	for _, ref := range refs {
		if ref.Title == label || (ref.Abbreviation != "" && ref.Abbreviation == label) {
			return ref, true
		}
	}
	return studgram.Ref{}, false
}

// Label picks the text shown on a catalog button. Abbreviations win over
// titles because keyboard buttons have tight width limits.
func Label(ref studgram.Ref) string {
	if ref.Abbreviation != "" {
		return ref.Abbreviation
	}
	return ref.Title
}
