package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"warehouse-service/internal/cache"
	"warehouse-service/internal/models"
	"warehouse-service/internal/repository"
)

var errBarcodeNotLocated = errors.New("barcode not found in inventory or location view")

type dispatchSet struct {
	barcodes  *xsync.MapOf[string, struct{}]
	createdAt time.Time
}

// LocationReconciler resuelve la bodega y ubicación legibles de cada código de
// barras procesado. Los resultados van al LocationCache compartido; los errores
// quedan registrados en el propio resultado y nunca se propagan.
type LocationReconciler struct {
	repo     repository.LocationRepository
	cache    *cache.LocationCache
	counters *FulfillmentCounters
	logger   *zap.Logger

	workers int
	timeout time.Duration

	inflight   singleflight.Group
	dispatched *xsync.MapOf[string, *dispatchSet]
	wg         sync.WaitGroup
}

func NewLocationReconciler(
	repo repository.LocationRepository,
	locationCache *cache.LocationCache,
	counters *FulfillmentCounters,
	workers int,
	timeout time.Duration,
	logger *zap.Logger,
) *LocationReconciler {
	if workers <= 0 {
		workers = 1
	}
	return &LocationReconciler{
		repo:       repo,
		cache:      locationCache,
		counters:   counters,
		logger:     logger,
		workers:    workers,
		timeout:    timeout,
		dispatched: xsync.NewMapOf[string, *dispatchSet](),
	}
}

// Lookup resuelve un código de forma síncrona. Consultas simultáneas del mismo
// código comparten una sola ida a la base.
func (r *LocationReconciler) Lookup(ctx context.Context, barcode string) models.LocationLookup {
	v, _, _ := r.inflight.Do(barcode, func() (interface{}, error) {
		return r.resolve(ctx, barcode), nil
	})
	return v.(models.LocationLookup)
}

func (r *LocationReconciler) resolve(ctx context.Context, barcode string) models.LocationLookup {
	lookup := models.LocationLookup{Barcode: barcode, ResolvedAt: time.Now().UTC()}

	// 1. inventory vivo
	rec, primaryErr := r.repo.FindInventoryByBarcode(ctx, barcode)
	if primaryErr == nil && rec != nil {
		lookup.Source = models.LookupSourceInventory
		lookup.WarehouseID = rec.WarehouseID
		lookup.LocationID = rec.LocationID
		lookup.WarehouseName = models.UnknownWarehouse
		lookup.LocationName = models.NoLocationFound

		if rec.WarehouseID != nil {
			if wh, err := r.repo.GetWarehouse(ctx, *rec.WarehouseID); err != nil {
				lookup.Error = err.Error()
			} else if wh != nil {
				lookup.WarehouseName = wh.Name
			}
		}
		if rec.LocationID != nil {
			if loc, err := r.repo.GetLocation(ctx, *rec.LocationID); err != nil {
				lookup.Error = err.Error()
			} else if loc != nil {
				lookup.LocationName = loc.Name
				lookup.Floor = loc.Floor
				lookup.Zone = loc.Zone
			}
		}
		return lookup
	}

	// 2. vista desnormalizada
	view, fallbackErr := r.repo.FindViewByBarcode(ctx, barcode)
	if fallbackErr == nil && view != nil {
		lookup.Source = models.LookupSourceView
		lookup.WarehouseID = view.WarehouseID
		lookup.LocationID = view.LocationID
		lookup.WarehouseName = valueOr(view.WarehouseName, models.UnknownWarehouse)
		lookup.LocationName = valueOr(view.LocationName, models.NoLocationFound)
		lookup.Floor = view.Floor
		lookup.Zone = view.Zone
		return lookup
	}

	lookup.Source = models.LookupSourceNone
	lookup.WarehouseName = models.UnknownWarehouse
	lookup.LocationName = models.NoLocationFound
	lookup.Errored = true

	err := errors.Join(primaryErr, fallbackErr)
	if err == nil {
		err = errBarcodeNotLocated
	}
	lookup.Error = err.Error()
	return lookup
}

// Resolve busca todos los códigos en paralelo, guarda los resultados en caché
// y los devuelve cuando terminan.
func (r *LocationReconciler) Resolve(ctx context.Context, barcodes []string) map[string]models.LocationLookup {
	unique := dedupe(barcodes)
	results := xsync.NewMapOf[string, models.LocationLookup]()

	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for _, barcode := range unique {
		barcode := barcode
		g.Go(func() error {
			lookup := r.Lookup(ctx, barcode)
			r.store(ctx, lookup)
			results.Store(barcode, lookup)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]models.LocationLookup, len(unique))
	results.Range(func(key string, value models.LocationLookup) bool {
		out[key] = value
		return true
	})
	return out
}

// Dispatch lanza la reconciliación en segundo plano y retorna de inmediato.
// Cada código se despacha a lo sumo una vez por sesión; devuelve cuántos se lanzaron.
func (r *LocationReconciler) Dispatch(sessionID string, barcodes []string) int {
	set, _ := r.dispatched.LoadOrCompute(sessionID, func() *dispatchSet {
		return &dispatchSet{barcodes: xsync.NewMapOf[string, struct{}](), createdAt: time.Now()}
	})

	var pending []string
	for _, barcode := range dedupe(barcodes) {
		if _, loaded := set.barcodes.LoadOrStore(barcode, struct{}{}); !loaded {
			pending = append(pending, barcode)
		}
	}
	if len(pending) == 0 {
		return 0
	}

	r.counters.LookupDispatched(len(pending))
	r.logger.Debug("Reconciliación de ubicaciones despachada",
		zap.String("session_id", sessionID),
		zap.Int("barcodes", len(pending)))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// no depende del request que la originó
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		// los fallidos se liberan para que una consulta posterior los reintente
		for barcode, lookup := range r.Resolve(ctx, pending) {
			if lookup.Errored {
				set.barcodes.Delete(barcode)
			}
		}
	}()

	return len(pending)
}

// Results devuelve lo que haya en caché para esos códigos, sin consultar la base
func (r *LocationReconciler) Results(ctx context.Context, barcodes []string) map[string]models.LocationLookup {
	out := make(map[string]models.LocationLookup)
	for _, barcode := range dedupe(barcodes) {
		if lookup, ok := r.cache.Get(ctx, barcode); ok {
			out[barcode] = lookup
		}
	}
	return out
}

// Wait bloquea hasta que terminen las reconciliaciones en curso
func (r *LocationReconciler) Wait() {
	r.wg.Wait()
}

// Prune olvida los registros de despacho de sesiones más viejas que maxAge
func (r *LocationReconciler) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	r.dispatched.Range(func(key string, set *dispatchSet) bool {
		if set.createdAt.Before(cutoff) {
			r.dispatched.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

func (r *LocationReconciler) store(ctx context.Context, lookup models.LocationLookup) {
	if lookup.Errored {
		r.counters.LookupErrored()
		r.logger.Warn("No se pudo reconciliar la ubicación",
			zap.String("barcode", lookup.Barcode),
			zap.String("error", lookup.Error))
	}
	if err := r.cache.Set(ctx, lookup); err != nil {
		r.logger.Warn("Error guardando ubicación en caché",
			zap.String("barcode", lookup.Barcode),
			zap.Error(err))
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
