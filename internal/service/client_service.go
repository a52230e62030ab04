package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "shipdesk/internal/errors"
	"shipdesk/internal/model"
	"shipdesk/internal/repository"
)

// ClientInput carries every writable client field. Updates replace all of them.
type ClientInput struct {
	Name        string
	Email       string
	Phone       string
	Addresses   []model.Address
	OwnerUserID *uuid.UUID
}

// ClientService handles client CRUD scoped to the acting user.
type ClientService interface {
	List(ctx context.Context, actor Actor, search string, page model.PageRequest) (*model.Page[model.Client], error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Client, error)
	Create(ctx context.Context, actor Actor, in ClientInput) (*model.Client, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in ClientInput) (*model.Client, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type clientService struct {
	clientRepo repository.ClientRepository
}

// NewClientService creates a new client service.
func NewClientService(clientRepo repository.ClientRepository) ClientService {
	return &clientService{clientRepo: clientRepo}
}

// List returns a page of the clients visible to the actor.
func (s *clientService) List(ctx context.Context, actor Actor, search string, page model.PageRequest) (*model.Page[model.Client], error) {
	filter := repository.ClientFilter{Search: search}
	if !actor.IsAdmin() {
		owner := actor.UserID
		filter.OwnerUserID = &owner
	}
	items, total, err := s.clientRepo.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return &model.Page[model.Client]{Items: items, Total: total}, nil
}

// Get returns one client. Clients owned by someone else look missing to non-admins.
func (s *clientService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Client, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	if !actor.IsAdmin() && client.OwnerUserID != actor.UserID {
		return nil, apperrors.ErrClientNotFound
	}
	return client, nil
}

// Create stores a new client, owned by the actor unless an admin names another owner.
func (s *clientService) Create(ctx context.Context, actor Actor, in ClientInput) (*model.Client, error) {
	client := &model.Client{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Addresses:   in.Addresses,
		OwnerUserID: s.ownerFor(actor, in.OwnerUserID, actor.UserID),
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// Update replaces every writable field of an existing client.
func (s *clientService) Update(ctx context.Context, actor Actor, id uuid.UUID, in ClientInput) (*model.Client, error) {
	client, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	client.Name = in.Name
	client.Email = in.Email
	client.Phone = in.Phone
	client.Addresses = in.Addresses
	if client.Addresses == nil {
		client.Addresses = []model.Address{}
	}
	client.OwnerUserID = s.ownerFor(actor, in.OwnerUserID, client.OwnerUserID)

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return client, nil
}

// Delete removes a client visible to the actor.
func (s *clientService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrClientNotFound
		}
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}

func (s *clientService) ownerFor(actor Actor, requested *uuid.UUID, fallback uuid.UUID) uuid.UUID {
	if requested != nil && *requested != uuid.Nil && actor.IsAdmin() {
		return *requested
	}
	return fallback
}
