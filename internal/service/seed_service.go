package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "shipdesk/internal/errors"
	"shipdesk/internal/model"
	"shipdesk/internal/observability"
	"shipdesk/internal/repository"
)

const (
	DefaultSeedCount = 5
	MaxSeedCount     = 100
)

var (
	seedFirstNames = []string{"Ada", "Grace", "Linus", "Margaret", "Ken", "Barbara", "Dennis", "Frances"}
	seedLastNames  = []string{"Lovelace", "Hopper", "Torvalds", "Hamilton", "Thompson", "Liskov", "Ritchie", "Allen"}
	seedCities     = []struct{ City, Country string }{
		{"Lisbon", "PT"}, {"Rotterdam", "NL"}, {"Hamburg", "DE"}, {"Valencia", "ES"},
		{"Gdansk", "PL"}, {"Marseille", "FR"}, {"Genoa", "IT"}, {"Antwerp", "BE"},
	}
)

// SeedService generates demo clients and shipments for the acting user.
type SeedService interface {
	SeedClients(ctx context.Context, actor Actor, count int) (int, error)
	SeedShipments(ctx context.Context, actor Actor, count int) (int, error)
}

type seedService struct {
	clientRepo   repository.ClientRepository
	shipmentRepo repository.ShipmentRepository
	metrics      *observability.Metrics
	now          func() time.Time
}

// NewSeedService creates a new seed service.
func NewSeedService(clientRepo repository.ClientRepository, shipmentRepo repository.ShipmentRepository, metrics *observability.Metrics) SeedService {
	return &seedService{
		clientRepo:   clientRepo,
		shipmentRepo: shipmentRepo,
		metrics:      metrics,
		now:          time.Now,
	}
}

// NormalizeSeedCount applies the default and the upper bound to a requested count.
func NormalizeSeedCount(count int) int {
	if count <= 0 {
		return DefaultSeedCount
	}
	if count > MaxSeedCount {
		return MaxSeedCount
	}
	return count
}

// SeedClients inserts count generated clients owned by the actor.
func (s *seedService) SeedClients(ctx context.Context, actor Actor, count int) (int, error) {
	count = NormalizeSeedCount(count)

	clients := make([]model.Client, 0, count)
	for i := 0; i < count; i++ {
		first := seedFirstNames[rand.IntN(len(seedFirstNames))]
		last := seedLastNames[rand.IntN(len(seedLastNames))]
		place := seedCities[rand.IntN(len(seedCities))]
		suffix := uuid.NewString()[:8]
		clients = append(clients, model.Client{
			Name:  first + " " + last,
			Email: strings.ToLower(fmt.Sprintf("%s.%s.%s@example.com", first, last, suffix)),
			Phone: fmt.Sprintf("+1-555-%04d", rand.IntN(10000)),
			Addresses: []model.Address{{
				Line1:   fmt.Sprintf("%d Harbour Road", 1+rand.IntN(200)),
				City:    place.City,
				Country: place.Country,
				Zip:     fmt.Sprintf("%05d", rand.IntN(100000)),
			}},
			OwnerUserID: actor.UserID,
		})
	}

	if err := s.clientRepo.CreateBatch(ctx, clients); err != nil {
		return 0, fmt.Errorf("seed clients: %w", err)
	}
	s.metrics.RecordSeeded("clients", len(clients))
	return len(clients), nil
}

// SeedShipments inserts count generated shipments spread over the actor's clients.
func (s *seedService) SeedShipments(ctx context.Context, actor Actor, count int) (int, error) {
	count = NormalizeSeedCount(count)

	clientIDs, err := s.clientRepo.ListIDsByOwner(ctx, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("list clients: %w", err)
	}
	if len(clientIDs) == 0 {
		return 0, apperrors.ErrNoClients
	}

	now := s.now().UTC()
	shipments := make([]model.Shipment, 0, count)
	for i := 0; i < count; i++ {
		origin := seedCities[rand.IntN(len(seedCities))]
		dest := seedCities[rand.IntN(len(seedCities))]
		eta := now.Add(time.Duration(1+rand.IntN(14)) * 24 * time.Hour).Truncate(time.Second)
		shipments = append(shipments, model.Shipment{
			ClientID:    clientIDs[i%len(clientIDs)],
			Code:        "SHP-" + strings.ToUpper(uuid.NewString()[:8]),
			Origin:      origin.City + ", " + origin.Country,
			Destination: dest.City + ", " + dest.Country,
			WeightKg:    float64(1+rand.IntN(5000)) / 10,
			Status:      model.ShipmentStatusCreated,
			ETA:         &eta,
		})
	}

	if err := s.shipmentRepo.CreateBatch(ctx, shipments); err != nil {
		return 0, fmt.Errorf("seed shipments: %w", err)
	}
	s.metrics.RecordSeeded("shipments", len(shipments))
	return len(shipments), nil
}
