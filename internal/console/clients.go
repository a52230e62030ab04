package console

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"shipdesk/internal/apiclient"
	"shipdesk/internal/model"
)

// ClientInput is the full set of client fields. Update replaces all of them.
type ClientInput struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Addresses   []model.Address `json:"addresses"`
	OwnerUserID *uuid.UUID      `json:"ownerUserId,omitempty"`
}

// Clients calls the /clients endpoints.
type Clients struct {
	api *apiclient.Client
}

func (c *Clients) List(ctx context.Context, search string, page model.PageRequest) (*model.Page[model.Client], error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	var out model.Page[model.Client]
	if err := c.api.Get(ctx, "/clients", pageQuery(q, page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Clients) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var out model.Client
	if err := c.api.Get(ctx, "/clients/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Clients) Create(ctx context.Context, in ClientInput) (*model.Client, error) {
	var out model.Client
	if err := c.api.Post(ctx, "/clients", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Clients) Update(ctx context.Context, id uuid.UUID, in ClientInput) (*model.Client, error) {
	var out model.Client
	if err := c.api.Put(ctx, "/clients/"+id.String(), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Clients) Delete(ctx context.Context, id uuid.UUID) error {
	return c.api.Delete(ctx, "/clients/"+id.String())
}
