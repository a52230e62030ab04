package console

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"shipdesk/internal/apiclient"
	"shipdesk/internal/model"
)

// ShipmentQuery filters a shipment listing. Zero fields are not sent.
type ShipmentQuery struct {
	ClientID *uuid.UUID
	Status   model.ShipmentStatus
	Search   string
}

// ShipmentInput carries the editable shipment fields. Status is honoured
// only on create; use UpdateStatus to change it afterwards.
type ShipmentInput struct {
	ClientID    uuid.UUID            `json:"clientId"`
	Code        string               `json:"code"`
	Origin      string               `json:"origin"`
	Destination string               `json:"destination"`
	WeightKg    float64              `json:"weightKg"`
	Status      model.ShipmentStatus `json:"status,omitempty"`
	ETA         *time.Time           `json:"eta,omitempty"`
}

type statusChange struct {
	NewStatus model.ShipmentStatus `json:"newStatus"`
	Note      string               `json:"note,omitempty"`
}

// ShipmentDetail is a shipment with the first page of its history.
type ShipmentDetail struct {
	Shipment *model.Shipment
	History  *model.Page[model.ShipmentHistory]
}

// Shipments calls the /shipments and /history endpoints.
type Shipments struct {
	api *apiclient.Client
}

func (s *Shipments) List(ctx context.Context, query ShipmentQuery, page model.PageRequest) (*model.Page[model.Shipment], error) {
	if query.Status != "" && !query.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, query.Status)
	}
	q := url.Values{}
	if query.ClientID != nil {
		q.Set("clientId", query.ClientID.String())
	}
	if query.Status != "" {
		q.Set("status", string(query.Status))
	}
	if query.Search != "" {
		q.Set("search", query.Search)
	}
	var out model.Page[model.Shipment]
	if err := s.api.Get(ctx, "/shipments", pageQuery(q, page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Shipments) Get(ctx context.Context, id uuid.UUID) (*model.Shipment, error) {
	var out model.Shipment
	if err := s.api.Get(ctx, "/shipments/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Shipments) Create(ctx context.Context, in ShipmentInput) (*model.Shipment, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	var out model.Shipment
	if err := s.api.Post(ctx, "/shipments", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the editable fields. ClientID and Status are ignored by
// the server; the shipment's status is never changed here.
func (s *Shipments) Update(ctx context.Context, id uuid.UUID, in ShipmentInput) (*model.Shipment, error) {
	var out model.Shipment
	if err := s.api.Put(ctx, "/shipments/"+id.String(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus moves a shipment to newStatus. Any known status is accepted;
// the server records the change in the shipment's history.
func (s *Shipments) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus model.ShipmentStatus, note string) (*model.Shipment, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	var out model.Shipment
	err := s.api.Patch(ctx, "/shipments/"+id.String()+"/status", statusChange{NewStatus: newStatus, Note: note}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns a shipment's status changes, most recent first.
func (s *Shipments) History(ctx context.Context, id uuid.UUID, page model.PageRequest) (*model.Page[model.ShipmentHistory], error) {
	q := url.Values{"shipmentId": {id.String()}}
	var out model.Page[model.ShipmentHistory]
	if err := s.api.Get(ctx, "/history", pageQuery(q, page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Detail loads a shipment and its history concurrently. The two requests are
// independent; the first failure cancels the other.
func (s *Shipments) Detail(ctx context.Context, id uuid.UUID, page model.PageRequest) (*ShipmentDetail, error) {
	var detail ShipmentDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		shipment, err := s.Get(gctx, id)
		detail.Shipment = shipment
		return err
	})
	g.Go(func() error {
		history, err := s.History(gctx, id, page)
		detail.History = history
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &detail, nil
}
