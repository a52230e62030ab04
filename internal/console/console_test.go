package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shipdesk/internal/apiclient"
	"shipdesk/internal/model"
)

type staticSession struct{ token string }

func (s staticSession) Token() string                                { return s.token }
func (s staticSession) RefreshToken(context.Context) (string, error) { return s.token, nil }
func (s staticSession) Logout(context.Context) error                 { return nil }

type call struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) last(t *testing.T) call {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.calls)
	return r.calls[len(r.calls)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// newConsole serves reply for every request and records what was sent.
func newConsole(t *testing.T, status int, reply any) (*Console, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&c.Body)
		rec.mu.Lock()
		rec.calls = append(rec.calls, c)
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if reply != nil {
			_ = json.NewEncoder(w).Encode(reply)
		}
	}))
	t.Cleanup(srv.Close)

	api := apiclient.NewClient(apiclient.NewTransport(srv.URL, 0, zap.NewNop()), staticSession{token: "T1"}, zap.NewNop())
	return New(api), rec
}

func TestClients_ListSendsSearchAndPaging(t *testing.T) {
	owner := uuid.New()
	c, rec := newConsole(t, http.StatusOK, model.Page[model.Client]{
		Items: []model.Client{{ID: uuid.New(), Name: "Acme", OwnerUserID: owner}},
		Total: 11,
	})

	page, err := c.Clients.List(context.Background(), "acme", model.PageRequest{Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, owner, page.Items[0].OwnerUserID)

	got := rec.last(t)
	assert.Equal(t, "/clients", got.Path)
	assert.Equal(t, "page=2&pageSize=5&search=acme", got.Query)
	assert.Equal(t, "Bearer T1", got.Auth)
}

func TestClients_UpdateSendsFullReplacement(t *testing.T) {
	id := uuid.New()
	c, rec := newConsole(t, http.StatusOK, model.Client{ID: id, Name: "Acme"})

	_, err := c.Clients.Update(context.Background(), id, ClientInput{Name: "Acme", Email: "ops@acme.test"})
	require.NoError(t, err)

	got := rec.last(t)
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/clients/"+id.String(), got.Path)
	assert.Contains(t, got.Body, "phone")
	assert.Contains(t, got.Body, "addresses")
	assert.NotContains(t, got.Body, "ownerUserId")
}

func TestClients_DeleteNotFound(t *testing.T) {
	c, _ := newConsole(t, http.StatusNotFound, map[string]string{"error": "client not found", "code": "CLIENT_NOT_FOUND"})

	err := c.Clients.Delete(context.Background(), uuid.New())
	assert.True(t, apiclient.IsNotFound(err))
	assert.Equal(t, "client not found", apiclient.Message(err))
}

func TestShipments_UpdateStatusSendsChange(t *testing.T) {
	id := uuid.New()
	c, rec := newConsole(t, http.StatusOK, model.Shipment{ID: id, Status: model.ShipmentStatusDelivered})

	shipment, err := c.Shipments.UpdateStatus(context.Background(), id, model.ShipmentStatusDelivered, "signed by front desk")
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentStatusDelivered, shipment.Status)

	got := rec.last(t)
	assert.Equal(t, http.MethodPatch, got.Method)
	assert.Equal(t, "/shipments/"+id.String()+"/status", got.Path)
	assert.Equal(t, map[string]any{"newStatus": "delivered", "note": "signed by front desk"}, got.Body)
}

func TestShipments_UnknownStatusIsRejectedLocally(t *testing.T) {
	c, rec := newConsole(t, http.StatusOK, nil)
	ctx := context.Background()

	_, err := c.Shipments.UpdateStatus(ctx, uuid.New(), "lost", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = c.Shipments.List(ctx, ShipmentQuery{Status: "lost"}, model.PageRequest{})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = c.Shipments.Create(ctx, ShipmentInput{Code: "X", Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.Zero(t, rec.count())
}

func TestShipments_AnyKnownTransitionIsSent(t *testing.T) {
	c, rec := newConsole(t, http.StatusOK, model.Shipment{})
	for _, status := range model.ShipmentStatuses {
		_, err := c.Shipments.UpdateStatus(context.Background(), uuid.New(), status, "")
		require.NoError(t, err)
	}
	assert.Equal(t, len(model.ShipmentStatuses), rec.count())
}

func TestShipments_ListFilters(t *testing.T) {
	clientID := uuid.New()
	c, rec := newConsole(t, http.StatusOK, model.Page[model.Shipment]{Items: []model.Shipment{}})

	_, err := c.Shipments.List(context.Background(), ShipmentQuery{ClientID: &clientID, Status: model.ShipmentStatusInTransit}, model.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, "clientId="+clientID.String()+"&status=in_transit", rec.last(t).Query)
}

func TestShipments_HistoryDecodesRecords(t *testing.T) {
	shipmentID := uuid.New()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c, rec := newConsole(t, http.StatusOK, model.Page[model.ShipmentHistory]{
		Items: []model.ShipmentHistory{{ShipmentID: shipmentID, PrevStatus: "created", NewStatus: "in_transit", At: at}},
		Total: 1,
	})

	page, err := c.Shipments.History(context.Background(), shipmentID, model.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.ShipmentStatusInTransit, page.Items[0].NewStatus)
	assert.True(t, at.Equal(page.Items[0].At))
	assert.Equal(t, "/history", rec.last(t).Path)
	assert.Equal(t, "shipmentId="+shipmentID.String(), rec.last(t).Query)
}

func TestShipments_DetailLoadsBothConcurrently(t *testing.T) {
	id := uuid.New()
	var inflight, peak int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		if n == 2 {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		atomic.AddInt32(&inflight, -1)

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/history" {
			_ = json.NewEncoder(w).Encode(model.Page[model.ShipmentHistory]{Items: []model.ShipmentHistory{}, Total: 0})
			return
		}
		_ = json.NewEncoder(w).Encode(model.Shipment{ID: id, Code: "SHP-1"})
	}))
	t.Cleanup(srv.Close)

	api := apiclient.NewClient(apiclient.NewTransport(srv.URL, 0, zap.NewNop()), staticSession{token: "T1"}, zap.NewNop())
	detail, err := New(api).Shipments.Detail(context.Background(), id, model.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, "SHP-1", detail.Shipment.Code)
	assert.NotNil(t, detail.History)
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestShipments_DetailFailsWhenEitherFails(t *testing.T) {
	c, _ := newConsole(t, http.StatusNotFound, map[string]string{"error": "shipment not found", "code": "SHIPMENT_NOT_FOUND"})

	_, err := c.Shipments.Detail(context.Background(), uuid.New(), model.PageRequest{})
	assert.True(t, apiclient.IsNotFound(err))
}

func TestSeed_ReturnsInserted(t *testing.T) {
	c, rec := newConsole(t, http.StatusCreated, map[string]any{"ok": true, "inserted": 7})

	n, err := c.Seed.Shipments(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "/seed/shipments-basic", rec.last(t).Path)
	assert.Equal(t, map[string]any{"count": float64(7)}, rec.last(t).Body)
}
