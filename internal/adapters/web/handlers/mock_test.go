package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// MockControllerService implements ports.ControllerService
type MockControllerService struct {
	mock.Mock
}

func (m *MockControllerService) Report(ctx context.Context, id domain.MonitorID, r domain.Report) error {
	args := m.Called(id, r.Counts())
	return args.Error(0)
}

func (m *MockControllerService) RegisterMonitor(id domain.MonitorID, target ports.NotificationTarget) {
	m.Called(id, target)
}

func (m *MockControllerService) Verdict() domain.NameSet {
	args := m.Called()
	return args.Get(0).(domain.NameSet)
}

func (m *MockControllerService) Monitors() []domain.MonitorInfo {
	args := m.Called()
	return args.Get(0).([]domain.MonitorInfo)
}

func (m *MockControllerService) Counters() domain.Counters {
	args := m.Called()
	return args.Get(0).(domain.Counters)
}

// MockVerdictRepository implements ports.VerdictRepository
type MockVerdictRepository struct {
	mock.Mock
}

func (m *MockVerdictRepository) SaveVerdictsBatch(ctx context.Context, verdicts []domain.Verdict) error {
	args := m.Called(verdicts)
	return args.Error(0)
}

func (m *MockVerdictRepository) ListVerdicts(ctx context.Context, limit int) ([]domain.Verdict, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Verdict), args.Error(1)
}

func (m *MockVerdictRepository) GetVerdict(ctx context.Context, id string) (*domain.Verdict, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Verdict), args.Error(1)
}

func (m *MockVerdictRepository) Close() error { return nil }

// MockExporter implements HistoryExporter
type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) ExportHistory(s *domain.HistorySummary) ([]byte, error) {
	args := m.Called(s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
