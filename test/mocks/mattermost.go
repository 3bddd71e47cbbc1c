package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/ecoplant/plant-rewards/internal/mattermost"
)

// MockAlerter records moderation messages instead of posting them.
// Setting Err makes every send fail with it.
type MockAlerter struct {
	mu sync.Mutex

	Alerts    []mattermost.SubmissionAlert
	Reminders [][]mattermost.PendingSubmission
	Totals    []int64
	Err       error
}

// NewMockAlerter creates an empty MockAlerter.
func NewMockAlerter() *MockAlerter {
	return &MockAlerter{}
}

func (m *MockAlerter) SendSubmissionAlert(ctx context.Context, alert mattermost.SubmissionAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Alerts = append(m.Alerts, alert)
	return nil
}

func (m *MockAlerter) SendPendingReminder(ctx context.Context, pending []mattermost.PendingSubmission, total int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if len(pending) == 0 {
		return nil
	}
	m.Reminders = append(m.Reminders, pending)
	m.Totals = append(m.Totals, total)
	return nil
}

// ReminderCount returns the number of reminders delivered.
func (m *MockAlerter) ReminderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reminders)
}
