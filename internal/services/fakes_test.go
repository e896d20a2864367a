package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"warehouse-service/internal/cache"
	"warehouse-service/internal/config"
	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"
)

func strPtr(s string) *string { return &s }

// fakeState es una foto de las tablas que toca el flujo de salida
type fakeState struct {
	requests   map[string]models.StockOutRequest
	items      map[string]models.BatchItem
	processed  []models.ProcessedItem
	warehouses map[string]string
	locations  map[string]string
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		requests:   make(map[string]models.StockOutRequest, len(s.requests)),
		items:      make(map[string]models.BatchItem, len(s.items)),
		processed:  append([]models.ProcessedItem(nil), s.processed...),
		warehouses: s.warehouses,
		locations:  s.locations,
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	return c
}

// fakeDB implementa los repositorios del flujo de salida en memoria. Las
// transacciones trabajan sobre una copia y solo se publican al confirmar.
type fakeDB struct {
	mu    sync.Mutex
	state *fakeState

	// conflicts hace que las próximas N escrituras de progreso vean otra versión
	conflicts int
	insertErr error
	beginErr  error
	txCount   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{state: &fakeState{
		requests:   map[string]models.StockOutRequest{},
		items:      map[string]models.BatchItem{},
		warehouses: map[string]string{},
		locations:  map[string]string{},
	}}
}

func (f *fakeDB) addRequest(id, productID string, quantity int, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.requests[id] = models.StockOutRequest{
		ID: id, ProductID: productID, ProductName: "Widget", Quantity: quantity,
		RemainingQuantity: quantity, Status: status, RequestedBy: "op-1", Version: 1,
	}
}

func (f *fakeDB) addItem(id, barcode, productID string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.items[id] = models.BatchItem{
		ID: id, BatchID: "batch-1", ProductID: productID, ProductName: "Widget",
		Barcode: barcode, Quantity: qty, Status: models.BatchStatusAvailable,
		WarehouseID: strPtr("wh-1"), WarehouseName: strPtr("Main"),
		LocationID: strPtr("loc-1"), LocationName: strPtr("A-01"),
	}
}

func (f *fakeDB) request(id string) models.StockOutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.requests[id]
}

func (f *fakeDB) item(id string) models.BatchItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.items[id]
}

func (f *fakeDB) processed() []models.ProcessedItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ProcessedItem(nil), f.state.processed...)
}

func (f *fakeDB) setItemQuantity(id string, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.state.items[id]
	item.Quantity = qty
	f.state.items[id] = item
}

// ===== StockOutRepository =====

func (f *fakeDB) GetByID(_ context.Context, id string) (*models.StockOutRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.state.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (f *fakeDB) List(_ context.Context, filter *models.StockOutFilter) ([]*models.StockOutRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.StockOutRequest{}
	for _, req := range f.state.requests {
		req := req
		if filter != nil && filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		out = append(out, &req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDB) Create(_ context.Context, req *models.StockOutRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.RemainingQuantity = req.Quantity
	req.Version = 1
	req.RequestedAt = time.Now()
	f.state.requests[req.ID] = *req
	return nil
}

func (f *fakeDB) Approve(_ context.Context, id string, approvedQty int, approver string, version int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.state.requests[id]
	if !ok || req.Version != version {
		return false, nil
	}
	now := time.Now()
	req.Status = models.StockOutApproved
	req.ApprovedBy = &approver
	req.ApprovedQuantity = &approvedQty
	req.ApprovedAt = &now
	req.RemainingQuantity = approvedQty - req.ProcessedQuantity
	req.Version++
	f.state.requests[id] = req
	return true, nil
}

func (f *fakeDB) UpdateStatus(_ context.Context, id, status string, note *string, version int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.state.requests[id]
	if !ok || req.Version != version {
		return false, nil
	}
	req.Status = status
	if note != nil {
		req.Notes = note
	}
	req.Version++
	f.state.requests[id] = req
	return true, nil
}

func (f *fakeDB) ListProcessedItems(_ context.Context, stockOutID string) ([]*models.ProcessedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.ProcessedItem{}
	for _, item := range f.state.processed {
		item := item
		if item.StockOutID == stockOutID {
			item.LocationInfo = nil
			out = append(out, &item)
		}
	}
	return out, nil
}

// ===== BatchItemRepository =====

func (f *fakeDB) GetByBarcode(_ context.Context, barcode string) (*models.BatchItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.state.items {
		if item.Barcode == barcode {
			item := item
			return &item, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) getItemByID(id string) (*models.BatchItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.state.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeDB) AvailableForProduct(_ context.Context, productID string) ([]*models.BatchItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.BatchItem{}
	for _, item := range f.state.items {
		item := item
		if item.ProductID == productID && item.Quantity > 0 {
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AdjustQuantity valida y aplica bajo el mismo lock, como el SELECT ... FOR UPDATE real
func (f *fakeDB) AdjustQuantity(_ context.Context, id string, change int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.state.items[id]
	if !ok {
		return fmt.Errorf("batch item %s: %w", id, fulfillment.ErrNotFound)
	}
	if item.Quantity+change < 0 {
		return fmt.Errorf("batch item %s has %d, change %d: %w", id, item.Quantity, change, fulfillment.ErrInsufficientQuantity)
	}
	item.Quantity += change
	f.state.items[id] = item
	return nil
}

// batchItemRepo adapta fakeDB a BatchItemRepository; GetByID choca con el del
// repositorio de solicitudes.
type batchItemRepo struct{ *fakeDB }

func (r batchItemRepo) GetByID(_ context.Context, id string) (*models.BatchItem, error) {
	return r.getItemByID(id)
}

// ===== FulfillmentStore =====

func (f *fakeDB) RunInTx(ctx context.Context, fn func(tx repository.FulfillmentTx) error) error {
	f.mu.Lock()
	if f.beginErr != nil {
		f.mu.Unlock()
		return f.beginErr
	}
	f.txCount++
	work := f.state.clone()
	f.mu.Unlock()

	if err := fn(&fakeTx{db: f, state: work}); err != nil {
		return err
	}

	f.mu.Lock()
	f.state = work
	f.mu.Unlock()
	return nil
}

type fakeTx struct {
	db    *fakeDB
	state *fakeState
}

func (t *fakeTx) GetRequest(_ context.Context, id string) (*models.StockOutRequest, error) {
	req, ok := t.state.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (t *fakeTx) GetBatchItem(_ context.Context, id string) (*models.BatchItem, error) {
	item, ok := t.state.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (t *fakeTx) WarehouseExists(_ context.Context, id string) (bool, error) {
	_, ok := t.state.warehouses[id]
	return ok, nil
}

func (t *fakeTx) LocationExists(_ context.Context, id string) (bool, error) {
	_, ok := t.state.locations[id]
	return ok, nil
}

func (t *fakeTx) SessionCommitted(_ context.Context, sessionID string) (bool, error) {
	for _, p := range t.state.processed {
		if p.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

// InsertProcessedItem respeta UNIQUE (session_id, barcode) como la tabla real
func (t *fakeTx) InsertProcessedItem(_ context.Context, item *models.ProcessedItem) error {
	t.db.mu.Lock()
	err := t.db.insertErr
	t.db.mu.Unlock()
	if err != nil {
		return err
	}
	for _, p := range t.state.processed {
		if p.SessionID == item.SessionID && p.Barcode == item.Barcode {
			return fmt.Errorf("barcode %s already processed: %w", item.Barcode, fulfillment.ErrSessionClaimed)
		}
	}
	t.state.processed = append(t.state.processed, *item)
	return nil
}

func (t *fakeTx) DeductBatchItem(_ context.Context, id string, qty, expected int, status string) (bool, error) {
	item, ok := t.state.items[id]
	if !ok || item.Quantity != expected || item.Quantity < qty {
		return false, nil
	}
	item.Quantity -= qty
	item.Status = status
	t.state.items[id] = item
	return true, nil
}

func (t *fakeTx) ApplyProgress(_ context.Context, req *models.StockOutRequest, expectedVersion int) (bool, error) {
	t.db.mu.Lock()
	if t.db.conflicts > 0 {
		t.db.conflicts--
		t.db.mu.Unlock()
		return false, nil
	}
	t.db.mu.Unlock()

	current, ok := t.state.requests[req.ID]
	if !ok || current.Version != expectedVersion {
		return false, nil
	}
	updated := *req
	updated.Version = expectedVersion + 1
	t.state.requests[req.ID] = updated
	return true, nil
}

// ===== LocationRepository =====

type fakeLocations struct {
	mu         sync.Mutex
	inventory  map[string]models.InventoryRecord
	warehouses map[string]models.Warehouse
	locations  map[string]models.WarehouseLocation
	view       map[string]models.ViewLocation
	failAll    error
	calls      map[string]int
}

func newFakeLocations() *fakeLocations {
	return &fakeLocations{
		inventory:  map[string]models.InventoryRecord{},
		warehouses: map[string]models.Warehouse{},
		locations:  map[string]models.WarehouseLocation{},
		view:       map[string]models.ViewLocation{},
		calls:      map[string]int{},
	}
}

func (f *fakeLocations) callsFor(barcode string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[barcode]
}

func (f *fakeLocations) FindInventoryByBarcode(_ context.Context, barcode string) (*models.InventoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[barcode]++
	if f.failAll != nil {
		return nil, f.failAll
	}
	rec, ok := f.inventory[barcode]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeLocations) GetWarehouse(_ context.Context, id string) (*models.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wh, ok := f.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &wh, nil
}

func (f *fakeLocations) GetLocation(_ context.Context, id string) (*models.WarehouseLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.locations[id]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (f *fakeLocations) FindViewByBarcode(_ context.Context, barcode string) (*models.ViewLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, errors.New("view unavailable")
	}
	v, ok := f.view[barcode]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// ===== wiring =====

type fixture struct {
	db         *fakeDB
	locRepo    *fakeLocations
	mr         *miniredis.Miniredis
	sessions   *cache.SessionStore
	locCache   *cache.LocationCache
	reconciler *LocationReconciler
	counters   *FulfillmentCounters
	svc        StockOutService
}

func testFulfillmentConfig() config.FulfillmentConfig {
	return config.FulfillmentConfig{
		MaxTxRetries:     2,
		TxRetryBackoff:   time.Millisecond,
		ReconcileWorkers: 4,
		ReconcileTimeout: time.Second,
		SessionTTL:       time.Hour,
	}
}

func newFixture(t *testing.T, cfg config.FulfillmentConfig) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zap.NewNop()
	db := newFakeDB()
	locRepo := newFakeLocations()
	counters := NewFulfillmentCounters()
	sessions := cache.NewSessionStore(client, cfg.SessionTTL)
	locCache := cache.NewLocationCache(nil, 100, time.Minute, logger)
	reconciler := NewLocationReconciler(locRepo, locCache, counters, cfg.ReconcileWorkers, cfg.ReconcileTimeout, logger)
	t.Cleanup(reconciler.Wait)

	svc := NewStockOutService(db, batchItemRepo{db}, db, sessions, locCache, reconciler, counters, cfg, logger)
	require.NotNil(t, svc)

	return &fixture{
		db: db, locRepo: locRepo, mr: mr, sessions: sessions, locCache: locCache,
		reconciler: reconciler, counters: counters, svc: svc,
	}
}
