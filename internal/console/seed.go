package console

import (
	"context"

	"shipdesk/internal/apiclient"
)

type seedRequest struct {
	Count int `json:"count"`
}

type seedResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}

// Seed calls the demo-data endpoints. A zero count lets the server pick its default.
type Seed struct {
	api *apiclient.Client
}

func (s *Seed) Clients(ctx context.Context, count int) (int, error) {
	return s.run(ctx, "/seed/clients-basic", count)
}

func (s *Seed) Shipments(ctx context.Context, count int) (int, error) {
	return s.run(ctx, "/seed/shipments-basic", count)
}

func (s *Seed) run(ctx context.Context, path string, count int) (int, error) {
	var out seedResponse
	if err := s.api.Post(ctx, path, seedRequest{Count: count}, &out); err != nil {
		return 0, err
	}
	return out.Inserted, nil
}
