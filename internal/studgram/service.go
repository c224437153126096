package studgram

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// Ref is a catalog entry: an institution, faculty, or group.
type Ref struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Abbreviation string `json:"abbreviation"`
}

// Student is the backend's view of a registered student.
type Student struct {
	ID        string `json:"id"`
	MaxID     int64  `json:"maxId"`
	FullName  string `json:"fullName"`
	CreatedAt string `json:"createdAt"`
}

// Subject is a study discipline assigned to a student.
type Subject struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Abbreviation string `json:"abbreviation"`
}

// SubjectContent carries the detail payload of one subject.
type SubjectContent struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Service exposes typed operations of the StudGram API on top of Client.
type Service struct {
	client *Client
}

// NewService wraps a Client with typed API operations.
func NewService(client *Client) *Service {
	return &Service{client: client}
}

// Institutions lists all known institutions.
func (s *Service) Institutions(ctx context.Context) ([]Ref, error) {
	return s.listRefs(ctx, "institutions")
}

// Faculties lists the faculties of one institution.
func (s *Service) Faculties(ctx context.Context, institutionID string) ([]Ref, error) {
	return s.listRefs(ctx, fmt.Sprintf("institutions/%s/faculties", institutionID))
}

// Groups lists the groups of one faculty.
func (s *Service) Groups(ctx context.Context, institutionID, facultyID string) ([]Ref, error) {
	return s.listRefs(ctx, fmt.Sprintf("institutions/%s/faculties/%s/groups", institutionID, facultyID))
}

func (s *Service) listRefs(ctx context.Context, path string) ([]Ref, error) {
	raw, err := s.client.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(raw, emptySuccess) {
		return nil, nil
	}
	var refs []Ref
	if err := decode(raw, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// RegisterStudent creates a student record and returns its backend id.
func (s *Service) RegisterStudent(ctx context.Context, maxID int64, fullName string) (string, error) {
	body := map[string]any{"maxId": maxID}
	if fullName != "" {
		body["fullName"] = fullName
	}
	raw, err := s.client.Request(ctx, http.MethodPost, "students", body)
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := decode(raw, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// StudentByMaxID resolves a transport user id to a backend student id.
// A missing student is reported as ("", nil), not as an error.
func (s *Service) StudentByMaxID(ctx context.Context, maxID int64) (string, error) {
	raw, err := s.client.Request(ctx, http.MethodGet, fmt.Sprintf("students/max/%d", maxID), nil)
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	var found struct {
		ID string `json:"id"`
	}
	if err := decode(raw, &found); err != nil {
		return "", err
	}
	return found.ID, nil
}

// StudentData fetches the backend record of a student.
func (s *Service) StudentData(ctx context.Context, studentID string) (*Student, error) {
	raw, err := s.client.Request(ctx, http.MethodGet, "students/"+studentID, nil)
	if err != nil {
		return nil, err
	}
	var st Student
	if err := decode(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// UpdateStudent patches mutable student fields.
func (s *Service) UpdateStudent(ctx context.Context, studentID string, fields map[string]any) error {
	_, err := s.client.Request(ctx, http.MethodPatch, "students/"+studentID, fields)
	return err
}

// LinkInstitution attaches a student to an institution.
func (s *Service) LinkInstitution(ctx context.Context, studentID, institutionID string) error {
	_, err := s.client.Request(ctx, http.MethodPost, fmt.Sprintf("students/%s/institution/%s", studentID, institutionID), nil)
	return err
}

// LinkFaculty attaches a student to a faculty.
func (s *Service) LinkFaculty(ctx context.Context, studentID, facultyID string) error {
	_, err := s.client.Request(ctx, http.MethodPost, fmt.Sprintf("students/%s/faculty/%s", studentID, facultyID), nil)
	return err
}

// LinkGroup attaches a student to a group.
func (s *Service) LinkGroup(ctx context.Context, studentID, groupID string) error {
	_, err := s.client.Request(ctx, http.MethodPost, fmt.Sprintf("students/%s/group/%s", studentID, groupID), nil)
	return err
}

// ApplicationStatus queries whether the student's affiliation claim was
// approved by an administrator.
func (s *Service) ApplicationStatus(ctx context.Context, studentID string) (bool, error) {
	raw, err := s.client.Request(ctx, http.MethodGet, fmt.Sprintf("students/%s/application", studentID), nil)
	if err != nil {
		return false, err
	}
	var status struct {
		Approved bool `json:"approved"`
	}
	if err := decode(raw, &status); err != nil {
		return false, err
	}
	return status.Approved, nil
}

// StudentInstitution returns the institution the student is attached to, or
// nil when no attachment exists.
func (s *Service) StudentInstitution(ctx context.Context, studentID string) (*Ref, error) {
	return s.studentRef(ctx, fmt.Sprintf("students/%s/institution", studentID))
}

// StudentFaculty returns the faculty the student is attached to, or nil.
func (s *Service) StudentFaculty(ctx context.Context, studentID string) (*Ref, error) {
	return s.studentRef(ctx, fmt.Sprintf("students/%s/faculty", studentID))
}

// StudentGroup returns the group the student is attached to, or nil.
func (s *Service) StudentGroup(ctx context.Context, studentID string) (*Ref, error) {
	return s.studentRef(ctx, fmt.Sprintf("students/%s/group", studentID))
}

func (s *Service) studentRef(ctx context.Context, path string) (*Ref, error) {
	raw, err := s.client.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if bytes.Equal(raw, emptySuccess) {
		return nil, nil
	}
	var ref Ref
	if err := decode(raw, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Subjects lists the study disciplines of a student.
func (s *Service) Subjects(ctx context.Context, studentID string) ([]Subject, error) {
	raw, err := s.client.Request(ctx, http.MethodGet, fmt.Sprintf("students/%s/subjects", studentID), nil)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(raw, emptySuccess) {
		return nil, nil
	}
	var subjects []Subject
	if err := decode(raw, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// SubjectContent fetches the detail payload of one subject.
func (s *Service) SubjectContent(ctx context.Context, studentID, subjectID string) (*SubjectContent, error) {
	raw, err := s.client.Request(ctx, http.MethodGet, fmt.Sprintf("students/%s/subjects/%s", studentID, subjectID), nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var content SubjectContent
	if err := decode(raw, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// Ping verifies API connectivity by listing institutions.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.client.Request(ctx, http.MethodGet, "institutions", nil)
	return err
}
