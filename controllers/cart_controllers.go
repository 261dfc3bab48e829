package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pvaldez/pizza-express/cart"
	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/storage"
	"github.com/pvaldez/pizza-express/utils"
)

// CartController exposes the cart engine over HTTP. Each request opens the
// session's persisted snapshot, so any number of surfaces (web tab, mobile
// app) sharing a session id stay consistent through the shared KV store.
type CartController struct {
	KV storage.KV
}

func NewCartController(kv storage.KV) *CartController {
	return &CartController{KV: kv}
}

const cartSessionHeader = "X-Cart-Session"

func (cc *CartController) store(c *gin.Context) (*cart.Store, bool) {
	session := c.GetHeader(cartSessionHeader)
	if session == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("missing "+cartSessionHeader+" header"))
		return nil, false
	}
	return cart.NewStore(cc.KV, storage.CartKeyPrefix+session), true
}

func cartSummary(s *cart.Store) gin.H {
	subtotal := s.Subtotal()
	tax := cart.Tax(subtotal)
	return gin.H{
		"items":       s.Items(),
		"total_items": s.TotalItems(),
		"subtotal":    subtotal,
		"tax":         tax,
		"total":       subtotal + tax,
	}
}

// GetCart returns the session's items with totals.
func (cc *CartController) GetCart(c *gin.Context) {
	s, ok := cc.store(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart", cartSummary(s))
}

// AddItem appends a configured pizza as a new line item.
func (cc *CartController) AddItem(c *gin.Context) {
	s, ok := cc.store(c)
	if !ok {
		return
	}

	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if item.ID == "" || item.Name == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("item id and name are required"))
		return
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	s.AddItem(c.Request.Context(), item)
	utils.RespondJSON(c, http.StatusCreated, "Item added", cartSummary(s))
}

// UpdateItemQuantity sets a line item quantity; zero or less removes it.
func (cc *CartController) UpdateItemQuantity(c *gin.Context) {
	s, ok := cc.store(c)
	if !ok {
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	s.UpdateQuantity(c.Request.Context(), c.Param("item_id"), body.Quantity)
	utils.RespondJSON(c, http.StatusOK, "Cart updated", cartSummary(s))
}

// RemoveItem drops a line item; removing an absent id is not an error.
func (cc *CartController) RemoveItem(c *gin.Context) {
	s, ok := cc.store(c)
	if !ok {
		return
	}
	s.RemoveItem(c.Request.Context(), c.Param("item_id"))
	utils.RespondJSON(c, http.StatusOK, "Item removed", cartSummary(s))
}

// ClearCart empties the cart and deletes its snapshot, called after an order
// is placed.
func (cc *CartController) ClearCart(c *gin.Context) {
	s, ok := cc.store(c)
	if !ok {
		return
	}
	s.Clear(c.Request.Context())
	utils.RespondJSON(c, http.StatusOK, "Cart cleared", cartSummary(s))
}

// GetSummary returns totals without the item list, for badge counters.
func (cc *CartController) GetSummary(c *gin.Context) {
	s, ok := cc.store(c)
	if !ok {
		return
	}
	subtotal := s.Subtotal()
	tax := cart.Tax(subtotal)
	utils.RespondJSON(c, http.StatusOK, "Cart summary", gin.H{
		"total_items": s.TotalItems(),
		"subtotal":    subtotal,
		"tax":         tax,
		"total":       subtotal + tax,
	})
}

// SaveDraft persists the checkout form draft so a reload restores the
// half-filled form. The payload is opaque JSON.
func (cc *CartController) SaveDraft(c *gin.Context) {
	session := c.GetHeader(cartSessionHeader)
	if session == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("missing "+cartSessionHeader+" header"))
		return
	}

	var draft json.RawMessage
	if err := c.ShouldBindJSON(&draft); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := cc.KV.Set(c.Request.Context(), storage.DraftKeyPrefix+session, draft); err != nil {
		utils.ErrorLogger.Printf("cart draft: save: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to save draft"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Draft saved", nil)
}

// GetDraft returns the saved checkout form draft, or an empty object when
// there is none (or it is unreadable).
func (cc *CartController) GetDraft(c *gin.Context) {
	session := c.GetHeader(cartSessionHeader)
	if session == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("missing "+cartSessionHeader+" header"))
		return
	}

	data, err := cc.KV.Get(c.Request.Context(), storage.DraftKeyPrefix+session)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			utils.ErrorLogger.Printf("cart draft: read: %v", err)
		}
		utils.RespondJSON(c, http.StatusOK, "Draft", json.RawMessage("{}"))
		return
	}
	if !json.Valid(data) {
		utils.RespondJSON(c, http.StatusOK, "Draft", json.RawMessage("{}"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Draft", json.RawMessage(data))
}
