package incident_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/incident"
)

type mockIncidentRepository struct {
	incidents map[uuid.UUID]*entity.Incident
	updates   int
}

func newMockIncidentRepository() *mockIncidentRepository {
	return &mockIncidentRepository{incidents: make(map[uuid.UUID]*entity.Incident)}
}

// snapshot хранит копию, чтобы тесты видели только записанное состояние.
func snapshot(i *entity.Incident) *entity.Incident {
	cp := *i
	return &cp
}

func (m *mockIncidentRepository) Create(ctx context.Context, i *entity.Incident) error {
	m.incidents[i.ID] = snapshot(i)
	return nil
}

func (m *mockIncidentRepository) Update(ctx context.Context, i *entity.Incident) error {
	m.updates++
	m.incidents[i.ID] = snapshot(i)
	return nil
}

func (m *mockIncidentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Incident, error) {
	if i, ok := m.incidents[id]; ok {
		return snapshot(i), nil
	}
	return nil, nil
}

func (m *mockIncidentRepository) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*entity.Incident, error) {
	return m.FindByID(ctx, id)
}

func (m *mockIncidentRepository) filter(match func(*entity.Incident) bool) []*entity.Incident {
	var result []*entity.Incident
	for _, i := range m.incidents {
		if match(i) {
			result = append(result, snapshot(i))
		}
	}
	sort.Slice(result, func(a, b int) bool { return result[a].CreatedAt.After(result[b].CreatedAt) })
	return result
}

func (m *mockIncidentRepository) ListByCitizen(ctx context.Context, citizenID uuid.UUID, page repository.Page) ([]*entity.Incident, int, error) {
	result := m.filter(func(i *entity.Incident) bool { return i.CitizenID == citizenID })
	return result, len(result), nil
}

func (m *mockIncidentRepository) ListByAgent(ctx context.Context, agentID uuid.UUID, page repository.Page) ([]*entity.Incident, int, error) {
	result := m.filter(func(i *entity.Incident) bool { return i.IsAssignedTo(agentID) })
	return result, len(result), nil
}

func (m *mockIncidentRepository) Search(ctx context.Context, f repository.IncidentFilter) ([]*entity.Incident, int, error) {
	result := m.filter(func(i *entity.Incident) bool {
		if f.Status != nil && i.Status != *f.Status {
			return false
		}
		if f.Category != nil && i.Category != *f.Category {
			return false
		}
		if f.OnlyWithCoordinates && i.Coordinates == nil {
			return false
		}
		return true
	})
	return result, len(result), nil
}

func (m *mockIncidentRepository) Count(ctx context.Context) (int, error) {
	return len(m.incidents), nil
}

func (m *mockIncidentRepository) CountByStatus(ctx context.Context) (map[valueobject.IncidentStatus]int, error) {
	counts := make(map[valueobject.IncidentStatus]int)
	for _, i := range m.incidents {
		counts[i.Status]++
	}
	return counts, nil
}

func (m *mockIncidentRepository) CountByCategory(ctx context.Context) (map[valueobject.Category]int, error) {
	counts := make(map[valueobject.Category]int)
	for _, i := range m.incidents {
		counts[i.Category]++
	}
	return counts, nil
}

func (m *mockIncidentRepository) CountByNeighborhood(ctx context.Context) ([]repository.NeighborhoodCount, error) {
	return nil, nil
}

func (m *mockIncidentRepository) FindCreatedBetween(ctx context.Context, start, end time.Time) ([]*entity.Incident, error) {
	return m.filter(func(i *entity.Incident) bool {
		return !i.CreatedAt.Before(start) && !i.CreatedAt.After(end)
	}), nil
}

type mockUserRepository struct {
	users map[uuid.UUID]*entity.User
}

func newMockUserRepository(users ...*entity.User) *mockUserRepository {
	m := &mockUserRepository{users: make(map[uuid.UUID]*entity.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) Create(ctx context.Context, u *entity.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepository) ListByRole(ctx context.Context, role valueobject.Role, page repository.Page) ([]*entity.User, int, error) {
	var result []*entity.User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	return result, len(result), nil
}

type mockReferenceRepository struct {
	departments   map[uuid.UUID]*entity.Department
	neighborhoods map[uuid.UUID]*entity.Neighborhood
}

func newMockReferenceRepository() *mockReferenceRepository {
	return &mockReferenceRepository{
		departments:   make(map[uuid.UUID]*entity.Department),
		neighborhoods: make(map[uuid.UUID]*entity.Neighborhood),
	}
}

func (m *mockReferenceRepository) FindDepartmentByID(ctx context.Context, id uuid.UUID) (*entity.Department, error) {
	return m.departments[id], nil
}

func (m *mockReferenceRepository) FindNeighborhoodByID(ctx context.Context, id uuid.UUID) (*entity.Neighborhood, error) {
	return m.neighborhoods[id], nil
}

func (m *mockReferenceRepository) ListDepartments(ctx context.Context) ([]entity.Department, error) {
	return nil, nil
}

func (m *mockReferenceRepository) ListNeighborhoods(ctx context.Context) ([]entity.Neighborhood, error) {
	return nil, nil
}

func (m *mockReferenceRepository) EnsureDepartment(ctx context.Context, name, description string) error {
	return nil
}

func (m *mockReferenceRepository) EnsureNeighborhood(ctx context.Context, name, postalCode string) error {
	return nil
}

type mockPhotoRepository struct {
	photos []*entity.Photo
	fail   bool
}

func (m *mockPhotoRepository) Create(ctx context.Context, p *entity.Photo) error {
	if m.fail {
		return errors.New("insert failed")
	}
	m.photos = append(m.photos, p)
	return nil
}

func (m *mockPhotoRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]entity.Photo, error) {
	var result []entity.Photo
	for _, p := range m.photos {
		if p.IncidentID == incidentID {
			result = append(result, *p)
		}
	}
	return result, nil
}

type mockHistoryRepository struct {
	entries []*entity.IncidentHistory
}

func (m *mockHistoryRepository) Add(ctx context.Context, e *entity.IncidentHistory) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockHistoryRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]entity.IncidentHistory, error) {
	var result []entity.IncidentHistory
	for _, e := range m.entries {
		if e.IncidentID == incidentID {
			result = append(result, *e)
		}
	}
	return result, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []incident.NotificationRequest
}

func (n *recordingNotifier) Notify(ctx context.Context, req incident.NotificationRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
}

func (n *recordingNotifier) to(userID uuid.UUID) []incident.NotificationRequest {
	var result []incident.NotificationRequest
	for _, r := range n.sent {
		if r.RecipientID == userID {
			result = append(result, r)
		}
	}
	return result
}

type sentEmail struct {
	kind    string
	to      uuid.UUID
	message string
}

type recordingMailer struct {
	sent []sentEmail
}

func (m *recordingMailer) SendStatusEmail(ctx context.Context, citizen *entity.User, i *entity.Incident, message string) {
	m.sent = append(m.sent, sentEmail{kind: "status", to: citizen.ID, message: message})
}

func (m *recordingMailer) SendAssignmentEmail(ctx context.Context, agent *entity.User, i *entity.Incident) {
	m.sent = append(m.sent, sentEmail{kind: "assignment", to: agent.ID})
}

type memoryStore struct {
	files   map[string][]byte
	deleted []string
	failOn  string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: make(map[string][]byte)}
}

func (s *memoryStore) Save(ctx context.Context, incidentID uuid.UUID, fileName string, r io.Reader) (string, int64, string, error) {
	if fileName == s.failOn {
		return "", 0, "", errors.New("disk full")
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return "", 0, "", err
	}
	path := incidentID.String() + "/" + fileName
	s.files[path] = buf.Bytes()
	return path, n, "image/jpeg", nil
}

func (s *memoryStore) Delete(ctx context.Context, path string) error {
	delete(s.files, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *memoryStore) URLFor(path string) string {
	return "/media/" + path
}

type recordingPublisher struct {
	events []entity.IncidentEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, e entity.IncidentEvent) {
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	var result []string
	for _, e := range p.events {
		result = append(result, e.Type)
	}
	return result
}

func upload(name, content string) incident.PhotoUpload {
	return incident.PhotoUpload{
		FileName: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewBufferString(content)), nil
		},
	}
}

// env собирает use case'ы поверх общих заглушек.
type env struct {
	incidents  *mockIncidentRepository
	users      *mockUserRepository
	references *mockReferenceRepository
	photos     *mockPhotoRepository
	history    *mockHistoryRepository
	notifier   *recordingNotifier
	mailer     *recordingMailer
	store      *memoryStore
	events     *recordingPublisher
	now        time.Time

	citizen *entity.User
	agent   *entity.User
	other   *entity.User
	admin   *entity.User
}

func newEnv() *env {
	department := uuid.New()
	e := &env{
		incidents:  newMockIncidentRepository(),
		references: newMockReferenceRepository(),
		photos:     &mockPhotoRepository{},
		history:    &mockHistoryRepository{},
		notifier:   &recordingNotifier{},
		mailer:     &recordingMailer{},
		store:      newMemoryStore(),
		events:     &recordingPublisher{},
		now:        time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		citizen:    &entity.User{ID: uuid.New(), FirstName: "Amel", LastName: "Ben Salah", Email: "citizen@example.com", Role: valueobject.RoleCitizen, Active: true},
		agent:      &entity.User{ID: uuid.New(), FirstName: "Karim", LastName: "Trabelsi", Email: "agent@example.com", Role: valueobject.RoleMunicipalAgent, DepartmentID: &department, Active: true},
		other:      &entity.User{ID: uuid.New(), FirstName: "Sami", LastName: "Jaziri", Email: "other@example.com", Role: valueobject.RoleMunicipalAgent, Active: true},
		admin:      &entity.User{ID: uuid.New(), FirstName: "Leila", LastName: "Haddad", Email: "admin@example.com", Role: valueobject.RoleAdministrator, Active: true},
	}
	e.references.departments[department] = &entity.Department{ID: department, Name: "Voirie"}
	e.users = newMockUserRepository(e.citizen, e.agent, e.other, e.admin)
	return e
}

func (e *env) deps() incident.Dependencies {
	return incident.Dependencies{
		Incidents:  e.incidents,
		Users:      e.users,
		References: e.references,
		Photos:     e.photos,
		History:    e.history,
		Notifier:   e.notifier,
		Mailer:     e.mailer,
		Store:      e.store,
		Events:     e.events,
		Now:        func() time.Time { return e.now },
	}
}

// seed кладёт обращение в заданном статусе прямо в хранилище.
func (e *env) seed(status valueobject.IncidentStatus, agent *entity.User) *entity.Incident {
	i := &entity.Incident{
		ID:          uuid.New(),
		Title:       "Broken street light",
		Description: "The light has been off for a week",
		Category:    valueobject.CategoryLighting,
		Status:      status,
		Priority:    valueobject.PriorityMedium,
		Address:     "4 Rue de Marseille",
		CitizenID:   e.citizen.ID,
		CreatedAt:   e.now.Add(-48 * time.Hour),
		UpdatedAt:   e.now.Add(-48 * time.Hour),
	}
	if agent != nil {
		id := agent.ID
		i.AgentID = &id
	}
	if status.IsResolvedOrLater() {
		resolvedAt := e.now.Add(-time.Hour)
		i.ResolvedAt = &resolvedAt
	}
	e.incidents.incidents[i.ID] = i
	return i
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
