package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"warehouse-service/internal/cache"
	"warehouse-service/internal/config"
	"warehouse-service/internal/fulfillment"
	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"
)

// errRowChanged marca un conflicto optimista dentro de la transacción; se
// reintenta la unidad completa.
var errRowChanged = errors.New("row changed since it was read")

// StockOutService orquesta el ciclo de vida de una solicitud de salida y la
// confirmación de las sesiones de escaneo.
type StockOutService interface {
	Create(ctx context.Context, in *models.CreateStockOutRequest) (*models.StockOutRequest, error)
	Get(ctx context.Context, id string) (*models.StockOutRequest, error)
	List(ctx context.Context, filter *models.StockOutFilter) ([]*models.StockOutRequest, error)
	Approve(ctx context.Context, id string, approvedQty int, approver string) (*models.StockOutRequest, error)
	Reject(ctx context.Context, id, reason, actor string) (*models.StockOutRequest, error)
	Cancel(ctx context.Context, id, actor string) (*models.StockOutRequest, error)

	// Sesiones de escaneo
	StartSession(ctx context.Context, requestID, operator string) (*models.ScanSessionView, error)
	GetSession(ctx context.Context, sessionID string) (*models.ScanSessionView, error)
	Scan(ctx context.Context, sessionID, operator string, in *models.ScanRequest) (*models.ScanResult, error)
	RemoveScan(ctx context.Context, sessionID, operator, barcode string) (*models.ScanSessionView, error)
	Complete(ctx context.Context, sessionID, operator string) (*models.CompletionResult, error)

	ListProcessedItems(ctx context.Context, requestID string) (*models.ProcessedItemsResponse, error)
	AvailableBatchItems(ctx context.Context, requestID string) ([]*models.BatchItem, error)
}

type stockOutService struct {
	repo       repository.StockOutRepository
	batchItems repository.BatchItemRepository
	store      repository.FulfillmentStore
	sessions   *cache.SessionStore
	locations  *cache.LocationCache
	reconciler *LocationReconciler
	counters   *FulfillmentCounters
	cfg        config.FulfillmentConfig
	logger     *zap.Logger
}

func NewStockOutService(
	repo repository.StockOutRepository,
	batchItems repository.BatchItemRepository,
	store repository.FulfillmentStore,
	sessions *cache.SessionStore,
	locations *cache.LocationCache,
	reconciler *LocationReconciler,
	counters *FulfillmentCounters,
	cfg config.FulfillmentConfig,
	logger *zap.Logger,
) StockOutService {
	return &stockOutService{
		repo:       repo,
		batchItems: batchItems,
		store:      store,
		sessions:   sessions,
		locations:  locations,
		reconciler: reconciler,
		counters:   counters,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *stockOutService) Create(ctx context.Context, in *models.CreateStockOutRequest) (*models.StockOutRequest, error) {
	req := &models.StockOutRequest{
		ID:           uuid.New().String(),
		ProductID:    in.ProductID,
		ProductName:  in.ProductName,
		Quantity:     in.Quantity,
		Status:       models.StockOutPending,
		RequestedBy:  in.RequestedBy,
		CustomerName: in.CustomerName,
		Destination:  in.Destination,
		Notes:        in.Notes,
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("Solicitud de salida creada",
		zap.String("operation", "create_stock_out"),
		zap.String("stock_out_id", req.ID),
		zap.String("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity))

	return req, nil
}

func (s *stockOutService) Get(ctx context.Context, id string) (*models.StockOutRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("stock out request %s: %w", id, fulfillment.ErrNotFound)
	}
	return req, nil
}

func (s *stockOutService) List(ctx context.Context, filter *models.StockOutFilter) ([]*models.StockOutRequest, error) {
	return s.repo.List(ctx, filter)
}

// Approve fija la cantidad aprobada, que pasa a ser la meta de la solicitud
func (s *stockOutService) Approve(ctx context.Context, id string, approvedQty int, approver string) (*models.StockOutRequest, error) {
	logger := s.logger.With(
		zap.String("operation", "approve_stock_out"),
		zap.String("stock_out_id", id),
		zap.String("approver", approver),
	)

	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !fulfillment.CanTransition(req.Status, models.StockOutApproved) {
		return nil, fmt.Errorf("cannot approve request in status %s: %w", req.Status, fulfillment.ErrInvalidTransition)
	}
	if approvedQty < 1 || approvedQty > req.Quantity {
		return nil, fmt.Errorf("approved quantity must be between 1 and %d: %w", req.Quantity, fulfillment.ErrInvalidInput)
	}

	ok, err := s.repo.Approve(ctx, id, approvedQty, approver, req.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fulfillment.ErrConcurrentUpdate
	}

	logger.Info("Solicitud aprobada", zap.Int("approved_quantity", approvedQty))
	return s.Get(ctx, id)
}

func (s *stockOutService) Reject(ctx context.Context, id, reason, actor string) (*models.StockOutRequest, error) {
	return s.transition(ctx, id, models.StockOutRejected, &reason, actor)
}

func (s *stockOutService) Cancel(ctx context.Context, id, actor string) (*models.StockOutRequest, error) {
	return s.transition(ctx, id, models.StockOutCancelled, nil, actor)
}

func (s *stockOutService) transition(ctx context.Context, id, to string, note *string, actor string) (*models.StockOutRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !fulfillment.CanTransition(req.Status, to) {
		return nil, fmt.Errorf("cannot move request from %s to %s: %w", req.Status, to, fulfillment.ErrInvalidTransition)
	}

	ok, err := s.repo.UpdateStatus(ctx, id, to, note, req.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fulfillment.ErrConcurrentUpdate
	}

	s.logger.Info("Estado de solicitud actualizado",
		zap.String("operation", "transition_stock_out"),
		zap.String("stock_out_id", id),
		zap.String("from", req.Status),
		zap.String("to", to),
		zap.String("actor", actor))

	return s.Get(ctx, id)
}

// activeRequest devuelve la solicitud solo si admite deducciones
func (s *stockOutService) activeRequest(ctx context.Context, id string) (*models.StockOutRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil || !fulfillment.CanDeduct(req.Status, s.cfg.RequireApproval) {
		return nil, nil
	}
	return req, nil
}

func (s *stockOutService) StartSession(ctx context.Context, requestID, operator string) (*models.ScanSessionView, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !fulfillment.CanDeduct(req.Status, s.cfg.RequireApproval) {
		return nil, fmt.Errorf("request %s is %s: %w", requestID, req.Status, fulfillment.ErrInvalidTransition)
	}

	session := fulfillment.NewSession(uuid.New().String(), req, operator, time.Now().UTC())
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Sesión de escaneo iniciada",
		zap.String("operation", "start_session"),
		zap.String("session_id", session.ID),
		zap.String("stock_out_id", requestID),
		zap.String("operator", operator))

	view := session.View()
	return &view, nil
}

func (s *stockOutService) GetSession(ctx context.Context, sessionID string) (*models.ScanSessionView, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view := session.View()
	return &view, nil
}

func (s *stockOutService) ownedSession(ctx context.Context, sessionID, operator string) (*fulfillment.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Operator != operator {
		return nil, fmt.Errorf("session %s belongs to another operator: %w", sessionID, fulfillment.ErrForbidden)
	}
	return session, nil
}

// Scan valida un código contra la sesión y la solicitud leída en vivo, y
// prepara la deducción. Un rechazo deja la sesión como estaba.
func (s *stockOutService) Scan(ctx context.Context, sessionID, operator string, in *models.ScanRequest) (*models.ScanResult, error) {
	logger := s.logger.With(
		zap.String("operation", "scan"),
		zap.String("session_id", sessionID),
		zap.String("barcode", in.Barcode),
		zap.Int("requested", in.Quantity),
	)

	session, err := s.ownedSession(ctx, sessionID, operator)
	if err != nil {
		return nil, err
	}

	item, err := s.batchItems.GetByBarcode(ctx, in.Barcode)
	if err != nil {
		return nil, err
	}
	req, err := s.activeRequest(ctx, session.StockOutID)
	if err != nil {
		return nil, err
	}

	var batch models.DeductedBatch
	updated, err := s.sessions.Update(ctx, sessionID, func(current *fulfillment.Session) error {
		var scanErr error
		batch, scanErr = current.Scan(item, req, in.Quantity)
		return scanErr
	})
	if err != nil {
		if errors.Is(err, fulfillment.ErrScanRejected) {
			s.counters.ScanRejected()
			logger.Info("Escaneo rechazado", zap.Error(err))
		}
		return nil, err
	}

	s.counters.ScanAccepted()
	logger.Info("Escaneo aceptado",
		zap.String("batch_item_id", batch.BatchItemID),
		zap.Int("deducted", batch.QuantityDeducted),
		zap.Int("session_remaining", updated.Remaining()))

	return &models.ScanResult{Batch: batch, Session: updated.View()}, nil
}

func (s *stockOutService) RemoveScan(ctx context.Context, sessionID, operator, barcode string) (*models.ScanSessionView, error) {
	if _, err := s.ownedSession(ctx, sessionID, operator); err != nil {
		return nil, err
	}

	updated, err := s.sessions.Update(ctx, sessionID, func(current *fulfillment.Session) error {
		if !current.Remove(barcode) {
			return fmt.Errorf("barcode %s is not staged: %w", barcode, fulfillment.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := updated.View()
	return &view, nil
}

// Complete confirma todas las deducciones preparadas en una sola transacción.
// La sesión se reclama antes de tocar la base, así una segunda llamada
// concurrente o repetida recibe ErrSessionClaimed. Ante un conflicto de versión
// la unidad completa se reintenta con espera lineal; agotados los reintentos
// devuelve ErrConcurrentUpdate. Si falla, la sesión queda intacta.
func (s *stockOutService) Complete(ctx context.Context, sessionID, operator string) (*models.CompletionResult, error) {
	logger := s.logger.With(
		zap.String("operation", "complete_session"),
		zap.String("session_id", sessionID),
		zap.String("operator", operator),
	)

	session, err := s.ownedSession(ctx, sessionID, operator)
	if err != nil {
		return nil, err
	}
	if len(session.Batches) == 0 {
		return nil, fulfillment.ErrEmptySession
	}

	if err := s.sessions.Claim(ctx, sessionID); err != nil {
		logger.Warn("Sesión ya reclamada para confirmar", zap.Error(err))
		return nil, err
	}

	// lo escaneado antes del claim ya está en Redis
	session, err = s.sessions.Get(ctx, sessionID)
	if err == nil && len(session.Batches) == 0 {
		err = fulfillment.ErrEmptySession
	}
	if err != nil {
		s.releaseClaim(ctx, logger, sessionID)
		return nil, err
	}

	req, items, attempt, err := s.commitSession(ctx, logger, session, operator)
	if err != nil {
		if errors.Is(err, fulfillment.ErrSessionClaimed) {
			// la base ya tiene esta sesión: se descarta la copia vieja
			if finishErr := s.sessions.Finish(context.WithoutCancel(ctx), sessionID); finishErr != nil {
				logger.Warn("No se pudo cerrar la sesión ya confirmada", zap.Error(finishErr))
			}
			return nil, err
		}
		s.releaseClaim(ctx, logger, sessionID)
		return nil, err
	}

	if err := s.sessions.Finish(context.WithoutCancel(ctx), sessionID); err != nil {
		logger.Warn("No se pudo cerrar la sesión confirmada", zap.Error(err))
	}

	units := 0
	barcodes := make([]string, 0, len(items))
	for _, item := range items {
		units += item.Quantity
		barcodes = append(barcodes, item.Barcode)
	}
	s.counters.CompletionSucceeded(len(items), units)
	s.reconciler.Dispatch(sessionID, barcodes)

	logger.Info("Sesión confirmada",
		zap.String("stock_out_id", req.ID),
		zap.Int("items", len(items)),
		zap.Int("units", units),
		zap.Int("remaining", req.RemainingQuantity),
		zap.String("status", req.Status),
		zap.Int("attempts", attempt))

	return &models.CompletionResult{
		StockOut:       req,
		ProcessedItems: items,
		Attempts:       attempt,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// commitSession ejecuta completeOnce hasta que confirme o se agoten los reintentos
func (s *stockOutService) commitSession(
	ctx context.Context,
	logger *zap.Logger,
	session *fulfillment.Session,
	operator string,
) (*models.StockOutRequest, []models.ProcessedItem, int, error) {
	maxAttempts := s.cfg.MaxTxRetries + 1

	for attempt := 1; ; attempt++ {
		req, items, err := s.completeOnce(ctx, session, operator)
		if err == nil {
			return req, items, attempt, nil
		}
		if !errors.Is(err, errRowChanged) {
			s.counters.CompletionFailed()
			logger.Error("Error confirmando sesión", zap.Int("attempt", attempt), zap.Error(err))
			return nil, nil, attempt, err
		}

		s.counters.Conflict()
		logger.Warn("Conflicto de concurrencia, reintentando", zap.Int("attempt", attempt))
		if attempt >= maxAttempts {
			s.counters.CompletionFailed()
			return nil, nil, attempt, fmt.Errorf("gave up after %d attempts: %w", attempt, fulfillment.ErrConcurrentUpdate)
		}

		select {
		case <-ctx.Done():
			s.counters.CompletionFailed()
			return nil, nil, attempt, ctx.Err()
		case <-time.After(time.Duration(attempt) * s.cfg.TxRetryBackoff):
		}
	}
}

func (s *stockOutService) releaseClaim(ctx context.Context, logger *zap.Logger, sessionID string) {
	if err := s.sessions.Release(context.WithoutCancel(ctx), sessionID); err != nil {
		logger.Warn("No se pudo liberar la sesión", zap.Error(err))
	}
}

func (s *stockOutService) completeOnce(ctx context.Context, session *fulfillment.Session, operator string) (*models.StockOutRequest, []models.ProcessedItem, error) {
	var (
		result *models.StockOutRequest
		items  []models.ProcessedItem
	)

	err := s.store.RunInTx(ctx, func(tx repository.FulfillmentTx) error {
		items = items[:0]

		req, err := tx.GetRequest(ctx, session.StockOutID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("stock out request %s: %w", session.StockOutID, fulfillment.ErrNotFound)
		}
		if !fulfillment.CanDeduct(req.Status, s.cfg.RequireApproval) {
			return fmt.Errorf("request %s is %s: %w", req.ID, req.Status, fulfillment.ErrInvalidTransition)
		}

		committed, err := tx.SessionCommitted(ctx, session.ID)
		if err != nil {
			return err
		}
		if committed {
			return fmt.Errorf("session %s was already completed: %w", session.ID, fulfillment.ErrSessionClaimed)
		}

		version := req.Version
		now := time.Now().UTC()

		for _, staged := range session.Batches {
			item, err := s.deduct(ctx, tx, req, session.ID, staged, operator, now)
			if err != nil {
				return err
			}
			items = append(items, *item)
			req.ProcessedQuantity += item.Quantity
			req.RemainingQuantity -= item.Quantity
		}

		req.Status = fulfillment.StatusAfterProgress(req.RemainingQuantity)
		if req.Status == models.StockOutCompleted {
			req.ProcessedBy = &operator
			req.ProcessedAt = &now
		}

		ok, err := tx.ApplyProgress(ctx, req, version)
		if err != nil {
			return err
		}
		if !ok {
			return errRowChanged
		}

		req.Version = version + 1
		req.UpdatedAt = now
		result = req
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, items, nil
}

// deduct vuelve a calcular una fila preparada con los valores vivos, registra el
// ítem procesado y descuenta el batch item.
func (s *stockOutService) deduct(
	ctx context.Context,
	tx repository.FulfillmentTx,
	req *models.StockOutRequest,
	sessionID string,
	staged models.DeductedBatch,
	operator string,
	now time.Time,
) (*models.ProcessedItem, error) {
	item, err := tx.GetBatchItem(ctx, staged.BatchItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("batch item %s: %w", staged.BatchItemID, fulfillment.ErrNotFound)
	}
	if item.ProductID != req.ProductID {
		return nil, fmt.Errorf("batch item %s no longer matches product %s: %w", item.ID, req.ProductID, fulfillment.ErrScanRejected)
	}

	qty := staged.QuantityDeducted
	if allowed := fulfillment.MaxDeductible(item, req, qty); allowed < qty {
		if item.Quantity < qty {
			return nil, fmt.Errorf("batch item %s has %d, staged %d: %w", item.Barcode, item.Quantity, qty, fulfillment.ErrInsufficientQuantity)
		}
		return nil, fmt.Errorf("request %s has %d remaining, staged %d: %w", req.ID, req.RemainingQuantity, qty, fulfillment.ErrOverFulfillment)
	}

	info := models.LocationInfoFromBatchItem(item)
	notes, err := info.Encode()
	if err != nil {
		return nil, err
	}

	processed := &models.ProcessedItem{
		ID:           uuid.New().String(),
		StockOutID:   req.ID,
		SessionID:    sessionID,
		BatchItemID:  item.ID,
		ProductID:    item.ProductID,
		Barcode:      item.Barcode,
		Quantity:     qty,
		ProcessedBy:  operator,
		ProcessedAt:  now,
		Notes:        notes,
		LocationInfo: &info,
	}

	// las FK solo se escriben si apuntan a filas vivas
	if info.WarehouseID != nil {
		ok, err := tx.WarehouseExists(ctx, *info.WarehouseID)
		if err != nil {
			return nil, err
		}
		if ok {
			processed.WarehouseID = info.WarehouseID
		}
	}
	if info.LocationID != nil {
		ok, err := tx.LocationExists(ctx, *info.LocationID)
		if err != nil {
			return nil, err
		}
		if ok {
			processed.LocationID = info.LocationID
		}
	}

	if err := tx.InsertProcessedItem(ctx, processed); err != nil {
		return nil, err
	}

	status := models.StatusAfterDeduction(item.Quantity - qty)
	ok, err := tx.DeductBatchItem(ctx, item.ID, qty, item.Quantity, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errRowChanged
	}

	return processed, nil
}

// ListProcessedItems completa la ubicación de cada ítem con lo que haya en
// caché y despacha la reconciliación de los que aún no tienen nombres.
func (s *stockOutService) ListProcessedItems(ctx context.Context, requestID string) (*models.ProcessedItemsResponse, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListProcessedItems(ctx, requestID)
	if err != nil {
		return nil, err
	}

	resp := &models.ProcessedItemsResponse{
		StockOutID:     requestID,
		Items:          make([]models.ProcessedItem, 0, len(rows)),
		PendingLookups: []string{},
		TotalQuantity:  req.TargetQuantity(),
	}

	for _, row := range rows {
		info, err := models.DecodeLocationInfo(row.Notes)
		if err != nil {
			s.logger.Warn("Notas de ubicación ilegibles",
				zap.String("processed_item_id", row.ID),
				zap.Error(err))
		}

		if !info.HasNames() {
			// una resolución fallida se muestra pero sigue pendiente
			lookup, ok := s.locations.Get(ctx, row.Barcode)
			if ok {
				lookup.ApplyTo(&info)
			}
			if !ok || lookup.Errored {
				resp.PendingLookups = append(resp.PendingLookups, row.Barcode)
			}
		}

		row.LocationInfo = &info
		resp.Items = append(resp.Items, *row)
		resp.TotalProcessed += row.Quantity
	}

	if len(resp.PendingLookups) > 0 {
		s.reconciler.Dispatch("stock_out:"+requestID, resp.PendingLookups)
	}

	return resp, nil
}

func (s *stockOutService) AvailableBatchItems(ctx context.Context, requestID string) ([]*models.BatchItem, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.batchItems.AvailableForProduct(ctx, req.ProductID)
}
