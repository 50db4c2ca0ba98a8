package repo

import (
	"context"
	"crypto/subtle"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbncursed/vkr/pass-service/internal/models"
	"github.com/vbncursed/vkr/pass-service/internal/service"
)

// MemoryStore хранит записи в памяти процесса: без DATABASE_URL и в тестах
type MemoryStore struct {
	mu            sync.RWMutex
	passes        map[models.PassKey]models.PassRecord
	registrations map[uuid.UUID]map[string]models.Registration // pass id -> device
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		passes:        make(map[models.PassKey]models.PassRecord),
		registrations: make(map[uuid.UUID]map[string]models.Registration),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) GetPass(_ context.Context, key models.PassKey) (models.PassRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.passes[key]
	if !ok {
		return models.PassRecord{}, service.ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) GetPassByToken(_ context.Context, key models.PassKey, token string) (models.PassRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.passes[key]
	if !ok || subtle.ConstantTimeCompare([]byte(r.AuthenticationToken), []byte(token)) != 1 {
		return models.PassRecord{}, service.ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) InsertPass(_ context.Context, r models.PassRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := r.Key()
	if _, ok := m.passes[key]; ok {
		return service.ErrConflict
	}
	m.passes[key] = r
	return nil
}

func (m *MemoryStore) UpdatePassHash(_ context.Context, key models.PassKey, expectedHash, newHash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.passes[key]
	if !ok {
		return service.ErrNotFound
	}
	if r.Hash != expectedHash {
		return service.ErrConflict
	}
	r.Hash, r.UpdatedAt = newHash, updatedAt
	m.passes[key] = r
	return nil
}

func (m *MemoryStore) ListPushTokens(_ context.Context, passID uuid.UUID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	out := []string{}
	for _, reg := range m.registrations[passID] {
		if _, dup := seen[reg.PushToken]; dup {
			continue
		}
		seen[reg.PushToken] = struct{}{}
		out = append(out, reg.PushToken)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) UpsertRegistration(_ context.Context, r models.Registration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	devices, ok := m.registrations[r.PassID]
	if !ok {
		devices = make(map[string]models.Registration)
		m.registrations[r.PassID] = devices
	}
	if existing, ok := devices[r.DeviceLibraryID]; ok {
		existing.PushToken = r.PushToken
		devices[r.DeviceLibraryID] = existing
		return false, nil
	}
	devices[r.DeviceLibraryID] = r
	return true, nil
}

func (m *MemoryStore) DeleteRegistration(_ context.Context, passID uuid.UUID, deviceLibraryID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	devices := m.registrations[passID]
	if _, ok := devices[deviceLibraryID]; !ok {
		return false, nil
	}
	delete(devices, deviceLibraryID)
	if len(devices) == 0 {
		delete(m.registrations, passID)
	}
	return true, nil
}

func (m *MemoryStore) ListUpdatedPasses(_ context.Context, deviceLibraryID, passTypeID string, since time.Time) ([]models.PassRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PassRecord
	for _, r := range m.passes {
		if r.PassTypeID != passTypeID || !r.UpdatedAt.After(since) {
			continue
		}
		if _, ok := m.registrations[r.ID][deviceLibraryID]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

var (
	_ service.PassRepository         = (*MemoryStore)(nil)
	_ service.RegistrationRepository = (*MemoryStore)(nil)
	_ service.PassRepository         = (*Store)(nil)
	_ service.RegistrationRepository = (*Store)(nil)
)
