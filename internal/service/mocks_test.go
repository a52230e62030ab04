package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"shipdesk/internal/model"
	"shipdesk/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) GrantRole(ctx context.Context, id uuid.UUID, role string) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreVerificationToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	args := m.Called(ctx, token, userID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) ConsumeVerificationToken(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// MockMailer records verification links.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerification(ctx context.Context, user *model.User, link string) error {
	args := m.Called(ctx, user, link)
	return args.Error(0)
}

// MockClientRepository is a mock implementation of ClientRepository.
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) Create(ctx context.Context, client *model.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) CreateBatch(ctx context.Context, clients []model.Client) error {
	args := m.Called(ctx, clients)
	return args.Error(0)
}

func (m *MockClientRepository) Update(ctx context.Context, client *model.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *MockClientRepository) List(ctx context.Context, filter repository.ClientFilter, page model.PageRequest) ([]model.Client, int64, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Client), args.Get(1).(int64), args.Error(2)
}

func (m *MockClientRepository) ListIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockShipmentRepository is a mock implementation of ShipmentRepository.
// WithTransaction runs fn against the same mock and History.
type MockShipmentRepository struct {
	mock.Mock
	History *MockHistoryRepository
}

func (m *MockShipmentRepository) Create(ctx context.Context, shipment *model.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) CreateBatch(ctx context.Context, shipments []model.Shipment) error {
	args := m.Called(ctx, shipments)
	return args.Error(0)
}

func (m *MockShipmentRepository) Update(ctx context.Context, shipment *model.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ShipmentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockShipmentRepository) List(ctx context.Context, filter repository.ShipmentFilter, page model.PageRequest) ([]model.Shipment, int64, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Shipment), args.Get(1).(int64), args.Error(2)
}

func (m *MockShipmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, shipments repository.ShipmentRepository, history repository.HistoryRepository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m, m.History)
}

// MockHistoryRepository is a mock implementation of HistoryRepository.
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, record *model.ShipmentHistory) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID, page model.PageRequest) ([]model.ShipmentHistory, int64, error) {
	args := m.Called(ctx, shipmentID, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.ShipmentHistory), args.Get(1).(int64), args.Error(2)
}

// MockPublisher is a mock implementation of events.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}
