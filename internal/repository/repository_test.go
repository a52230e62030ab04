package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shipdesk/internal/db"
	"shipdesk/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func TestClientRepository_ListScopesByOwnerAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewClientRepository(newTestDB(t))
	owner, other := uuid.New(), uuid.New()

	require.NoError(t, repo.CreateBatch(ctx, []model.Client{
		{Name: "Acme Freight", Email: "ops@acme.test", OwnerUserID: owner},
		{Name: "Globex", Email: "hello@globex.test", OwnerUserID: owner},
		{Name: "Acme Other", Email: "x@acme.test", OwnerUserID: other},
	}))

	items, total, err := repo.List(ctx, ClientFilter{OwnerUserID: &owner, Search: "ACME"}, model.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "Acme Freight", items[0].Name)

	items, total, err = repo.List(ctx, ClientFilter{}, model.PageRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 2)

	ids, err := repo.ListIDsByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestClientRepository_AddressesRoundTripInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewClientRepository(newTestDB(t))

	client := &model.Client{
		Name:        "Initech",
		Email:       "it@initech.test",
		OwnerUserID: uuid.New(),
		Addresses: []model.Address{
			{Line1: "1 First St", City: "Austin"},
			{Line1: "2 Second Ave", Country: "US", Zip: "73301"},
		},
	}
	require.NoError(t, repo.Create(ctx, client))

	found, err := repo.FindByID(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, client.Addresses, found.Addresses)

	require.NoError(t, repo.Delete(ctx, client.ID))
	assert.ErrorIs(t, repo.Delete(ctx, client.ID), gorm.ErrRecordNotFound)
}

func TestShipmentRepository_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := NewShipmentRepository(newTestDB(t))
	clientID := uuid.New()

	require.NoError(t, repo.Create(ctx, &model.Shipment{ClientID: clientID, Code: "SHP-1", Origin: "A", Destination: "B", WeightKg: 1}))
	err := repo.Create(ctx, &model.Shipment{ClientID: clientID, Code: "SHP-1", Origin: "A", Destination: "B", WeightKg: 1})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestShipmentRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewShipmentRepository(newTestDB(t))
	clientA, clientB := uuid.New(), uuid.New()

	require.NoError(t, repo.CreateBatch(ctx, []model.Shipment{
		{ClientID: clientA, Code: "A-1", Origin: "Lima", Destination: "Quito", WeightKg: 2},
		{ClientID: clientA, Code: "A-2", Origin: "Bogota", Destination: "Lima", WeightKg: 3, Status: model.ShipmentStatusDelivered},
		{ClientID: clientB, Code: "B-1", Origin: "Santiago", Destination: "Cusco", WeightKg: 4},
	}))

	items, total, err := repo.List(ctx, ShipmentFilter{ClientID: &clientA}, model.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, _, err = repo.List(ctx, ShipmentFilter{Status: model.ShipmentStatusDelivered}, model.PageRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A-2", items[0].Code)

	_, total, err = repo.List(ctx, ShipmentFilter{Search: "lima"}, model.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestShipmentRepository_UpdateKeepsStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewShipmentRepository(newTestDB(t))

	shipment := &model.Shipment{ClientID: uuid.New(), Code: "U-1", Origin: "A", Destination: "B", WeightKg: 1}
	require.NoError(t, repo.Create(ctx, shipment))
	require.NoError(t, repo.UpdateStatus(ctx, shipment.ID, model.ShipmentStatusInTransit))

	shipment.Origin = "C"
	shipment.Status = model.ShipmentStatusCanceled
	require.NoError(t, repo.Update(ctx, shipment))

	found, err := repo.FindByID(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", found.Origin)
	assert.Equal(t, model.ShipmentStatusInTransit, found.Status)
}

func TestHistoryRepository_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	shipments := NewShipmentRepository(gormDB)
	history := NewHistoryRepository(gormDB)

	shipment := &model.Shipment{ClientID: uuid.New(), Code: "H-1", Origin: "A", Destination: "B", WeightKg: 1}
	require.NoError(t, shipments.Create(ctx, shipment))

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	steps := []struct {
		prev, next model.ShipmentStatus
		at         time.Time
	}{
		{model.ShipmentStatusCreated, model.ShipmentStatusInTransit, base},
		{model.ShipmentStatusInTransit, model.ShipmentStatusDelivered, base.Add(time.Hour)},
		{model.ShipmentStatusDelivered, model.ShipmentStatusCreated, base.Add(2 * time.Hour)},
	}
	for _, s := range steps {
		require.NoError(t, history.Append(ctx, &model.ShipmentHistory{
			ShipmentID: shipment.ID,
			PrevStatus: s.prev,
			NewStatus:  s.next,
			ChangedBy:  uuid.New(),
			At:         s.at,
		}))
	}

	records, total, err := history.ListByShipment(ctx, shipment.ID, model.PageRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, records, 2)
	assert.Equal(t, model.ShipmentStatusCreated, records[0].NewStatus)
	assert.Equal(t, model.ShipmentStatusDelivered, records[1].NewStatus)

	records, _, err = history.ListByShipment(ctx, shipment.ID, model.PageRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.ShipmentStatusInTransit, records[0].NewStatus)
}

func TestHistoryRepository_SameInstantKeepsAppendOrder(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	shipments := NewShipmentRepository(gormDB)
	history := NewHistoryRepository(gormDB)

	shipment := &model.Shipment{ClientID: uuid.New(), Code: "H-2", Origin: "A", Destination: "B", WeightKg: 1}
	require.NoError(t, shipments.Create(ctx, shipment))

	at := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	order := []model.ShipmentStatus{model.ShipmentStatusInTransit, model.ShipmentStatusDelivered, model.ShipmentStatusCreated}
	prev := model.ShipmentStatusCreated
	for _, next := range order {
		require.NoError(t, history.Append(ctx, &model.ShipmentHistory{
			ShipmentID: shipment.ID,
			PrevStatus: prev,
			NewStatus:  next,
			ChangedBy:  uuid.New(),
			At:         at,
		}))
		prev = next
	}

	records, _, err := history.ListByShipment(ctx, shipment.ID, model.PageRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, want := range []model.ShipmentStatus{model.ShipmentStatusCreated, model.ShipmentStatusDelivered, model.ShipmentStatusInTransit} {
		assert.Equal(t, want, records[i].NewStatus)
	}
	assert.True(t, records[0].At.After(records[1].At))
	assert.True(t, records[1].At.After(records[2].At))
	assert.Equal(t, at.Truncate(time.Microsecond), records[2].At.UTC())
}

func TestShipmentRepository_TransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	shipments := NewShipmentRepository(gormDB)
	history := NewHistoryRepository(gormDB)

	shipment := &model.Shipment{ClientID: uuid.New(), Code: "T-1", Origin: "A", Destination: "B", WeightKg: 1}
	require.NoError(t, shipments.Create(ctx, shipment))

	err := shipments.WithTransaction(ctx, func(ctx context.Context, txShipments ShipmentRepository, txHistory HistoryRepository) error {
		if err := txShipments.UpdateStatus(ctx, shipment.ID, model.ShipmentStatusCanceled); err != nil {
			return err
		}
		return gorm.ErrInvalidData
	})
	assert.ErrorIs(t, err, gorm.ErrInvalidData)

	found, err := shipments.FindByID(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentStatusCreated, found.Status)

	_, total, err := history.ListByShipment(ctx, shipment.ID, model.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUserRepository_VerifyAndGrantRole(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user := &model.User{Name: "Ops", Email: "ops@shipdesk.test", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.MarkVerified(ctx, user.ID))
	require.NoError(t, repo.GrantRole(ctx, user.ID, model.RoleAdmin))
	require.NoError(t, repo.GrantRole(ctx, user.ID, model.RoleAdmin))

	found, err := repo.FindByEmail(ctx, "ops@shipdesk.test")
	require.NoError(t, err)
	assert.True(t, found.Verified)
	assert.Equal(t, []string{model.RoleAdmin}, found.Roles)

	assert.ErrorIs(t, repo.GrantRole(ctx, uuid.New(), model.RoleAdmin), gorm.ErrRecordNotFound)
}
