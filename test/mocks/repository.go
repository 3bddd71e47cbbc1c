package mocks

import (
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/ecoplant/plant-rewards/internal/models"
)

// MockUserRepository is an in-memory user store for account tests.
// Setting Err makes every call fail with it.
type MockUserRepository struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	nextID uint

	Err error
}

// NewMockUserRepository creates an empty repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uint]*models.User), nextID: 1}
}

func (m *MockUserRepository) Create(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	user.ID = m.nextID
	m.nextID++
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MockUserRepository) GetByPhone(phone string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if u.Phone == phone {
			found := *u
			return &found, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) ExistsByPhone(phone string) (bool, error) {
	_, err := m.GetByPhone(phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	found := *u
	return &found, nil
}

func (m *MockUserRepository) Update(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MockUserRepository) UpdateTrust(user *models.User, previous int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	stored, ok := m.users[user.ID]
	if !ok || stored.TrustRating != previous {
		return false, nil
	}
	stored.TrustRating = user.TrustRating
	stored.LastTrustRecovery = user.LastTrustRecovery
	return true, nil
}

func (m *MockUserRepository) List(role string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.User
	for id := uint(1); id < m.nextID; id++ {
		if u, ok := m.users[id]; ok && (role == "" || u.Role == role) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *MockUserRepository) HasAdmin() (bool, error) {
	admins, err := m.List(models.RoleAdmin)
	return len(admins) > 0, err
}
