package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// MockTeamRepository is a mock implementation of ports.TeamRepository
type MockTeamRepository struct {
	mock.Mock
}

func NewMockTeamRepository() *MockTeamRepository {
	return &MockTeamRepository{}
}

func (m *MockTeamRepository) Create(ctx context.Context, team *domain.Team) (*domain.Team, error) {
	args := m.Called(ctx, team)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}

func (m *MockTeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Team), args.Error(1)
}

func (m *MockTeamRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Team, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Team), args.Error(1)
}

func (m *MockTeamRepository) AddMember(ctx context.Context, member *domain.TeamMember) (*domain.TeamMember, error) {
	args := m.Called(ctx, member)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TeamMember), args.Error(1)
}

func (m *MockTeamRepository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	args := m.Called(ctx, teamID, userID)
	return args.Error(0)
}

func (m *MockTeamRepository) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*domain.TeamMember, error) {
	args := m.Called(ctx, teamID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TeamMember), args.Error(1)
}

func (m *MockTeamRepository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]*domain.TeamMember, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TeamMember), args.Error(1)
}

// MockIssueRepository is a mock implementation of ports.IssueRepository
type MockIssueRepository struct {
	mock.Mock
}

func NewMockIssueRepository() *MockIssueRepository {
	return &MockIssueRepository{}
}

func (m *MockIssueRepository) Create(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	args := m.Called(ctx, issue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) Update(ctx context.Context, issue *domain.Issue) (*domain.Issue, error) {
	args := m.Called(ctx, issue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIssueRepository) ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]*domain.Issue, error) {
	args := m.Called(ctx, teamID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Issue), args.Error(1)
}

func (m *MockIssueRepository) ListByAssignee(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Issue, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Issue), args.Error(1)
}

// MockNotificationRepository is a mock implementation of ports.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	args := m.Called(ctx, notification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransactionManager is a pass-through implementation of
// ports.TransactionManager: fn runs immediately on the caller's context.
type MockTransactionManager struct{}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) SendToUser(userID uuid.UUID, event domain.Event) int {
	args := m.Called(userID, event)
	return args.Int(0)
}

func (m *MockEventBroadcaster) IsUserConnected(userID uuid.UUID) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

// MockEmailNotifier is a mock implementation of ports.EmailNotifier
type MockEmailNotifier struct {
	mock.Mock
}

func NewMockEmailNotifier() *MockEmailNotifier {
	return &MockEmailNotifier{}
}

func (m *MockEmailNotifier) Notify(ctx context.Context, params ports.EmailNotificationParams) {
	m.Called(ctx, params)
}

// MockNotificationPublisher is a mock implementation of ports.NotificationPublisher
type MockNotificationPublisher struct {
	mock.Mock
}

func NewMockNotificationPublisher() *MockNotificationPublisher {
	return &MockNotificationPublisher{}
}

func (m *MockNotificationPublisher) Publish(ctx context.Context, targets []uuid.UUID, event domain.Event) int {
	args := m.Called(ctx, targets, event)
	return args.Int(0)
}

func (m *MockNotificationPublisher) NotifyIssueAssigned(ctx context.Context, issue *domain.Issue, assignerUsername string) int {
	args := m.Called(ctx, issue, assignerUsername)
	return args.Int(0)
}

func (m *MockNotificationPublisher) NotifyIssueStatusChanged(ctx context.Context, issue *domain.Issue, actorUsername string, oldStatus domain.IssueStatus) int {
	args := m.Called(ctx, issue, actorUsername, oldStatus)
	return args.Int(0)
}

func (m *MockNotificationPublisher) NotifyIssueUpdated(ctx context.Context, issue *domain.Issue, actorUsername, changes string) int {
	args := m.Called(ctx, issue, actorUsername, changes)
	return args.Int(0)
}

func (m *MockNotificationPublisher) NotifyTeamInvite(ctx context.Context, team *domain.Team, userID uuid.UUID, inviterID uuid.UUID, inviterUsername string) int {
	args := m.Called(ctx, team, userID, inviterID, inviterUsername)
	return args.Int(0)
}

func (m *MockNotificationPublisher) BroadcastKanbanUpdate(ctx context.Context, issue *domain.Issue, action string) int {
	args := m.Called(ctx, issue, action)
	return args.Int(0)
}
