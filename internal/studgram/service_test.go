package studgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(NewClient(srv.URL, "secret", 2*time.Second))
}

func TestInstitutionsDecodesRefs(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/institutions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u1","title":"МГУ","abbreviation":"MSU"}]`))
	})

	refs, err := svc.Institutions(context.Background())
	if err != nil {
		t.Fatalf("Institutions: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "u1" || refs[0].Title != "МГУ" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestInstitutionsEmptyBody(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	refs, err := svc.Institutions(context.Background())
	if err != nil {
		t.Fatalf("Institutions: %v", err)
	}
	if refs != nil {
		t.Errorf("refs = %+v, want nil", refs)
	}
}

func TestStudentByMaxIDMissing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	id, err := svc.StudentByMaxID(context.Background(), 42)
	if err != nil {
		t.Fatalf("StudentByMaxID: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty", id)
	}
}

func TestStudentByMaxIDFound(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/students/max/42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"s-1","maxId":42}`))
	})

	id, err := svc.StudentByMaxID(context.Background(), 42)
	if err != nil {
		t.Fatalf("StudentByMaxID: %v", err)
	}
	if id != "s-1" {
		t.Errorf("id = %q, want s-1", id)
	}
}

func TestStudentRefMissingLink(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	ref, err := svc.StudentGroup(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("StudentGroup: %v", err)
	}
	if ref != nil {
		t.Errorf("ref = %+v, want nil", ref)
	}
}

func TestApplicationStatus(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"approved":true}`))
	})

	approved, err := svc.ApplicationStatus(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("ApplicationStatus: %v", err)
	}
	if !approved {
		t.Error("approved = false, want true")
	}
}

func TestApplicationStatusServerError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := svc.ApplicationStatus(context.Background(), "s-1")
	if KindOf(err) != KindServerError {
		t.Errorf("KindOf = %s, want server_error", KindOf(err))
	}
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/institutions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	if err := svc.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	down := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if err := down.Ping(context.Background()); KindOf(err) != KindServerError {
		t.Errorf("KindOf = %s, want server_error", KindOf(err))
	}
}
