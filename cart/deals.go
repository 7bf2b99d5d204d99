package cart

import (
	"context"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// evaluateLocked starts a deal lookup for the current lines under a new
// generation. An empty cart has no applicable deals and needs no lookup.
func (e *Engine) evaluateLocked() {
	e.generation++
	gen := e.generation

	if len(e.lines) == 0 {
		e.applicable = nil
		e.selected = nil
		return
	}
	if e.finder == nil {
		return
	}

	q := models.DealQuery{
		Subtotal:   Subtotal(e.lines),
		CustomerID: e.details.CustomerID,
	}
	if e.branchID != nil {
		q.BranchID = e.branchID()
	}
	for _, l := range e.lines {
		q.OrderItems = append(q.OrderItems, models.DealItem{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}

	e.inflight++
	go e.lookup(gen, Signature(e.lines), q)
}

func (e *Engine) lookup(gen uint64, sig string, q models.DealQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), e.LookupTimeout)
	defer cancel()

	deals, err := e.finder.FindApplicableDeals(ctx, q)

	e.mu.Lock()
	e.inflight--
	e.idle.Broadcast()

	if gen != e.generation || sig != Signature(e.lines) {
		utils.InfoLogger.Debugf("discarding deal lookup generation %d (current %d)", gen, e.generation)
		e.mu.Unlock()
		return
	}

	if err != nil {
		utils.ErrorLogger.Warnf("deal lookup failed, continuing without deals: %v", err)
		e.applicable = nil
		e.selected = nil
		e.commit()
		return
	}

	e.applyDealsLocked(deals)
	e.commit()
}

// applyDealsLocked installs a fresh applicable list. Selected deals that are
// no longer applicable are dropped and the rest refreshed from the new list.
// With nothing selected and no manual choice made, the first (best) deal is
// selected.
func (e *Engine) applyDealsLocked(deals []models.Deal) {
	e.applicable = deals

	kept := e.selected[:0:0]
	for _, s := range e.selected {
		for _, d := range deals {
			if d.ID == s.ID {
				kept = append(kept, d)
				break
			}
		}
	}
	e.selected = kept

	if len(e.selected) == 0 && !e.manualChoice && len(deals) > 0 {
		e.selected = []models.Deal{deals[0]}
	}
}
