package directory

import (
	"context"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// MockDirectory — конфигурируемая заглушка справочника оптовиков для тестов.
type MockDirectory struct {
	Profiles map[string]domain.WholesalerProfile
	Err      error

	ProfileCalls int
}

// NewMockDirectory возвращает пустую заглушку.
func NewMockDirectory() *MockDirectory {
	return &MockDirectory{Profiles: make(map[string]domain.WholesalerProfile)}
}

// Add кладёт профиль оптовика в справочник заглушки.
func (m *MockDirectory) Add(profile domain.WholesalerProfile) {
	m.Profiles[profile.ID] = profile
}

// Profile возвращает профиль из карты или заранее настроенную ошибку.
func (m *MockDirectory) Profile(_ context.Context, wholesalerID string) (domain.WholesalerProfile, error) {
	m.ProfileCalls++
	if m.Err != nil {
		return domain.WholesalerProfile{}, m.Err
	}
	profile, ok := m.Profiles[wholesalerID]
	if !ok {
		return domain.WholesalerProfile{}, domain.ErrWholesalerRequired
	}
	return profile, nil
}

var _ domain.WholesalerDirectory = (*MockDirectory)(nil)
