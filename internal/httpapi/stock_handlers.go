package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/apierror"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/audit"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/market"
)

// marketError maps domain errors to their API representation.
func marketError(err error) *apierror.Error {
	switch {
	case errors.Is(err, market.ErrStockNotFound):
		return apierror.NotFound("stock not found")
	case errors.Is(err, market.ErrDuplicateSymbol):
		return apierror.Conflict("stock already exists")
	default:
		return apierror.Validation(err.Error())
	}
}

// handleListStocks returns every stock in the caller's session, history included.
func (a *API) handleListStocks(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stocks": sess.Data.Stocks()})
}

type addStockRequest struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	InitialPrice float64 `json:"initialPrice"`
	Volume       int64   `json:"volume"`
}

// handleAddStock adds a stock to the caller's session with a backfilled
// price history.
func (a *API) handleAddStock(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}

	var req addStockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}

	stock, err := sess.Data.AddStock(req.Symbol, req.Name, req.InitialPrice, req.Volume, time.Now())
	if err != nil {
		writeError(w, r, marketError(err))
		return
	}

	_ = audit.LogEvent(r.Context(), "stocks.add", map[string]any{
		"session_id": sess.ID,
		"symbol":     stock.Symbol,
	})

	writeJSON(w, http.StatusCreated, stock)
}

type setPriceRequest struct {
	Price float64 `json:"price"`
}

// handleSetPrice pins a stock to an explicit price.
func (a *API) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}

	var req setPriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}

	symbol := chi.URLParam(r, "symbol")
	stock, err := sess.Data.SetPrice(symbol, req.Price, time.Now())
	if err != nil {
		writeError(w, r, marketError(err))
		return
	}

	_ = audit.LogEvent(r.Context(), "stocks.set_price", map[string]any{
		"session_id": sess.ID,
		"symbol":     stock.Symbol,
		"price":      stock.CurrentPrice,
	})

	writeJSON(w, http.StatusOK, stock)
}

// handleRemoveStock deletes a stock from the caller's session.
func (a *API) handleRemoveStock(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if err := sess.Data.RemoveStock(symbol); err != nil {
		writeError(w, r, marketError(err))
		return
	}

	_ = audit.LogEvent(r.Context(), "stocks.remove", map[string]any{
		"session_id": sess.ID,
		"symbol":     symbol,
	})

	writeJSON(w, http.StatusOK, map[string]any{"removed": true})
}

type bulkUpdateRequest struct {
	UpdateType string  `json:"updateType"`
	Percentage float64 `json:"percentage"`
}

// handleBulkUpdate applies a market-wide move to every stock in the session
// and publishes the resulting changes to the session's stream.
func (a *API) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.SessionInvalid())
		return
	}

	var req bulkUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}

	kind, err := market.ParseBulkKind(req.UpdateType)
	if err != nil {
		writeError(w, r, apierror.Validation(err.Error()))
		return
	}

	stocks, changes, err := sess.Data.ApplyBulk(kind, req.Percentage, time.Now())
	if err != nil {
		writeError(w, r, marketError(err))
		return
	}
	if len(changes) > 0 && a.stream != nil {
		a.stream.Publish(sess.ID, changes)
	}

	_ = audit.LogEvent(r.Context(), "stocks.bulk_update", map[string]any{
		"session_id": sess.ID,
		"updateType": string(kind),
		"percentage": req.Percentage,
		"affected":   len(changes),
	})

	writeJSON(w, http.StatusOK, map[string]any{"stocks": stocks, "updated": len(changes)})
}
