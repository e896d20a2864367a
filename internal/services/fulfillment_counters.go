package services

import (
	"github.com/puzpuzpuz/xsync/v3"

	"warehouse-service/internal/models"
)

// FulfillmentCounters contadores del flujo de salida que se exponen en monitoring
type FulfillmentCounters struct {
	acceptedScans     *xsync.Counter
	rejectedScans     *xsync.Counter
	completions       *xsync.Counter
	failedCompletions *xsync.Counter
	conflicts         *xsync.Counter
	itemsProcessed    *xsync.Counter
	unitsDeducted     *xsync.Counter
	lookupsDispatched *xsync.Counter
	lookupsErrored    *xsync.Counter
}

func NewFulfillmentCounters() *FulfillmentCounters {
	return &FulfillmentCounters{
		acceptedScans:     xsync.NewCounter(),
		rejectedScans:     xsync.NewCounter(),
		completions:       xsync.NewCounter(),
		failedCompletions: xsync.NewCounter(),
		conflicts:         xsync.NewCounter(),
		itemsProcessed:    xsync.NewCounter(),
		unitsDeducted:     xsync.NewCounter(),
		lookupsDispatched: xsync.NewCounter(),
		lookupsErrored:    xsync.NewCounter(),
	}
}

func (c *FulfillmentCounters) ScanAccepted() { c.acceptedScans.Inc() }
func (c *FulfillmentCounters) ScanRejected() { c.rejectedScans.Inc() }
func (c *FulfillmentCounters) Conflict()     { c.conflicts.Inc() }

func (c *FulfillmentCounters) CompletionFailed() { c.failedCompletions.Inc() }

func (c *FulfillmentCounters) CompletionSucceeded(items, units int) {
	c.completions.Inc()
	c.itemsProcessed.Add(int64(items))
	c.unitsDeducted.Add(int64(units))
}

func (c *FulfillmentCounters) LookupDispatched(n int) { c.lookupsDispatched.Add(int64(n)) }
func (c *FulfillmentCounters) LookupErrored()         { c.lookupsErrored.Inc() }

func (c *FulfillmentCounters) Snapshot() models.FulfillmentMetrics {
	return models.FulfillmentMetrics{
		AcceptedScans:     c.acceptedScans.Value(),
		RejectedScans:     c.rejectedScans.Value(),
		Completions:       c.completions.Value(),
		FailedCompletions: c.failedCompletions.Value(),
		Conflicts:         c.conflicts.Value(),
		ItemsProcessed:    c.itemsProcessed.Value(),
		UnitsDeducted:     c.unitsDeducted.Value(),
		LookupsDispatched: c.lookupsDispatched.Value(),
		LookupsErrored:    c.lookupsErrored.Value(),
	}
}
