package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"salgados/services"

	"github.com/go-chi/chi/v5"
)

// quote prices a delivery address for a checkout session. Each call
// supersedes the previous one for the same session.
func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	settings := h.settingsOrFail(w)
	if settings == nil {
		return
	}
	addr := req.Address
	session := h.deps.Quotes.Session(chi.URLParam(r, "sessionId"))
	q, err := session.Recalculate(r.Context(), func(ctx context.Context) (*services.DeliveryQuote, error) {
		if !addr.Geocoded() {
			query := strings.Join(nonEmpty(addr.Street+" "+addr.Number, addr.District, addr.City), ", ")
			if res := h.deps.Geo.ForwardGeocode(ctx, query, addr.PostalCode); res != nil {
				addr.SetPoint(res.Point)
			}
		}
		if !addr.Geocoded() {
			return nil, &services.ValidationError{Reason: services.ErrAddressNotFound.Error(), Err: services.ErrAddressNotFound}
		}
		return services.QuoteDelivery(ctx, h.deps.Geo, settings, addr.Point())
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, quoteResponse{Quote: q, Address: addr})
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// checkoutInput loads the cart and discount flag from storage; neither is
// taken from the client.
func (h *Handler) checkoutInput(ctx context.Context, req checkoutRequest) (services.CheckoutRequest, error) {
	cart, err := h.deps.Carts.Get(ctx, req.UserID)
	if err != nil {
		return services.CheckoutRequest{}, err
	}
	eligible, err := h.deps.Users.DiscountEligible(ctx, req.UserID)
	if err != nil {
		return services.CheckoutRequest{}, err
	}
	return services.CheckoutRequest{
		UserID:           req.UserID,
		Lines:            cart.Lines,
		Fulfillment:      req.Fulfillment.toFulfillment(),
		DiscountEligible: eligible,
	}, nil
}

func (h *Handler) validateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	in, err := h.checkoutInput(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := checkoutResponse{}
	if s := h.deps.Settings.Current(); s != nil {
		resp.ForceScheduling = services.ForceSchedulingReason(s, in.Lines, h.deps.Now())
	}
	pricing, err := h.deps.Checkout.Validate(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Pricing = pricing
	respond(w, http.StatusOK, resp)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	in, err := h.checkoutInput(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	order, err := h.deps.Checkout.Place(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Carts.Delete(ctx, req.UserID); err != nil {
		log.Printf("api: clear cart user=%s after order=%s: %v", req.UserID, order.ID, err)
	}
	if req.SessionID != "" {
		h.deps.Quotes.Close(req.SessionID)
	}
	h.deps.Workflow.Placed(ctx, order)
	respond(w, http.StatusCreated, order)
}
