package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shipdesk/internal/cache"
	apperrors "shipdesk/internal/errors"
	"shipdesk/internal/events"
	"shipdesk/internal/model"
	"shipdesk/internal/observability"
	"shipdesk/internal/repository"
)

const (
	shipmentCacheTTL    = 5 * time.Minute
	shipmentCachePrefix = "shipment:"
	publishTimeout      = 5 * time.Second
)

// ShipmentInput carries the editable shipment fields. Status is only honoured
// on create; afterwards it changes through UpdateStatus alone.
type ShipmentInput struct {
	ClientID    uuid.UUID
	Code        string
	Origin      string
	Destination string
	WeightKg    float64
	Status      model.ShipmentStatus
	ETA         *time.Time
}

// ShipmentService handles shipments and their status workflow.
type ShipmentService interface {
	List(ctx context.Context, filter repository.ShipmentFilter, page model.PageRequest) (*model.Page[model.Shipment], error)
	Get(ctx context.Context, id uuid.UUID) (*model.Shipment, error)
	Create(ctx context.Context, actor Actor, in ShipmentInput) (*model.Shipment, error)
	Update(ctx context.Context, id uuid.UUID, in ShipmentInput) (*model.Shipment, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, newStatus model.ShipmentStatus, note string) (*model.Shipment, error)
	History(ctx context.Context, shipmentID uuid.UUID, page model.PageRequest) (*model.Page[model.ShipmentHistory], error)
}

type shipmentService struct {
	shipmentRepo repository.ShipmentRepository
	historyRepo  repository.HistoryRepository
	clientRepo   repository.ClientRepository
	cache        *cache.Client
	publisher    events.Publisher
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewShipmentService creates a new shipment service. cache may be nil.
func NewShipmentService(
	shipmentRepo repository.ShipmentRepository,
	historyRepo repository.HistoryRepository,
	clientRepo repository.ClientRepository,
	cache *cache.Client,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) ShipmentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &shipmentService{
		shipmentRepo: shipmentRepo,
		historyRepo:  historyRepo,
		clientRepo:   clientRepo,
		cache:        cache,
		publisher:    publisher,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// List returns a page of shipments matching the filter.
func (s *shipmentService) List(ctx context.Context, filter repository.ShipmentFilter, page model.PageRequest) (*model.Page[model.Shipment], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.ErrInvalidStatus
	}
	items, total, err := s.shipmentRepo.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	return &model.Page[model.Shipment]{Items: items, Total: total}, nil
}

// Get returns a shipment, served from cache when possible.
func (s *shipmentService) Get(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	var cached model.Shipment
	if s.cache.GetJSON(ctx, shipmentCacheKey(id), &cached) {
		return &cached, nil
	}

	shipment, err := s.findShipment(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, shipmentCacheKey(id), shipment, shipmentCacheTTL)
	return shipment, nil
}

// Create stores a new shipment for a client visible to the actor.
func (s *shipmentService) Create(ctx context.Context, actor Actor, in ShipmentInput) (*model.Shipment, error) {
	if err := s.checkClient(ctx, actor, in.ClientID); err != nil {
		return nil, err
	}
	if in.WeightKg <= 0 {
		return nil, apperrors.ErrInvalidWeight
	}
	status := in.Status
	if status == "" {
		status = model.ShipmentStatusCreated
	}
	if !status.Valid() {
		return nil, apperrors.ErrInvalidStatus
	}

	shipment := &model.Shipment{
		ClientID:    in.ClientID,
		Code:        strings.TrimSpace(in.Code),
		Origin:      in.Origin,
		Destination: in.Destination,
		WeightKg:    in.WeightKg,
		Status:      status,
		ETA:         utcPtr(in.ETA),
	}
	if err := s.shipmentRepo.Create(ctx, shipment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateCode
		}
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	return shipment, nil
}

// Update writes code, origin, destination, weight and ETA. The status is untouched.
func (s *shipmentService) Update(ctx context.Context, id uuid.UUID, in ShipmentInput) (*model.Shipment, error) {
	if in.WeightKg <= 0 {
		return nil, apperrors.ErrInvalidWeight
	}
	shipment, err := s.findShipment(ctx, id)
	if err != nil {
		return nil, err
	}

	shipment.Code = strings.TrimSpace(in.Code)
	shipment.Origin = in.Origin
	shipment.Destination = in.Destination
	shipment.WeightKg = in.WeightKg
	shipment.ETA = utcPtr(in.ETA)
	shipment.UpdatedAt = s.now()

	if err := s.shipmentRepo.Update(ctx, shipment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateCode
		}
		return nil, fmt.Errorf("update shipment: %w", err)
	}
	_ = s.cache.Delete(ctx, shipmentCacheKey(id))
	return shipment, nil
}

// UpdateStatus moves a shipment to newStatus and appends one history record,
// both in one transaction. Any known status may follow any other.
func (s *shipmentService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, newStatus model.ShipmentStatus, note string) (*model.Shipment, error) {
	var (
		updated *model.Shipment
		record  *model.ShipmentHistory
	)
	err := s.shipmentRepo.WithTransaction(ctx, func(ctx context.Context, shipments repository.ShipmentRepository, history repository.HistoryRepository) error {
		shipment, err := shipments.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrShipmentNotFound
			}
			return fmt.Errorf("lock shipment: %w", err)
		}
		if !newStatus.Valid() {
			return apperrors.ErrInvalidStatus
		}

		prev := shipment.Status
		if err := shipments.UpdateStatus(ctx, id, newStatus); err != nil {
			return fmt.Errorf("write status: %w", err)
		}

		record = &model.ShipmentHistory{
			ShipmentID: id,
			PrevStatus: prev,
			NewStatus:  newStatus,
			Note:       strings.TrimSpace(note),
			ChangedBy:  actor.UserID,
			At:         s.now().UTC(),
		}
		if err := history.Append(ctx, record); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		updated, err = shipments.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload shipment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, shipmentCacheKey(id))
	s.metrics.RecordStatusTransition(string(record.PrevStatus), string(record.NewStatus))
	s.publishStatusChanged(ctx, record)
	return updated, nil
}

// History returns the status changes of a shipment, most recent first.
func (s *shipmentService) History(ctx context.Context, shipmentID uuid.UUID, page model.PageRequest) (*model.Page[model.ShipmentHistory], error) {
	if _, err := s.findShipment(ctx, shipmentID); err != nil {
		return nil, err
	}
	items, total, err := s.historyRepo.ListByShipment(ctx, shipmentID, page)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return &model.Page[model.ShipmentHistory]{Items: items, Total: total}, nil
}

func (s *shipmentService) publishStatusChanged(ctx context.Context, record *model.ShipmentHistory) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.StatusChanged{
		Type:       events.StatusChangedType,
		ShipmentID: record.ShipmentID.String(),
		HistoryID:  record.ID.String(),
		PrevStatus: string(record.PrevStatus),
		NewStatus:  string(record.NewStatus),
		ChangedBy:  record.ChangedBy.String(),
		At:         record.At,
	}
	if err := s.publisher.Publish(ctx, event.ShipmentID, event); err != nil {
		s.logger.Warn("status event not published",
			zap.String("shipment_id", event.ShipmentID),
			zap.Error(err),
		)
	}
}

func (s *shipmentService) checkClient(ctx context.Context, actor Actor, clientID uuid.UUID) error {
	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrClientNotFound
		}
		return fmt.Errorf("find client: %w", err)
	}
	if !actor.IsAdmin() && client.OwnerUserID != actor.UserID {
		return apperrors.ErrClientNotFound
	}
	return nil
}

func (s *shipmentService) findShipment(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	shipment, err := s.shipmentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrShipmentNotFound
		}
		return nil, fmt.Errorf("find shipment: %w", err)
	}
	return shipment, nil
}

func shipmentCacheKey(id uuid.UUID) string {
	return shipmentCachePrefix + id.String()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
