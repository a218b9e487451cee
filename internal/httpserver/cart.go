package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	cartsvc "storefront/internal/service/cart"
)

// variantParam accepts a variant id sent either as a JSON string or number.
type variantParam string

func (v *variantParam) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = variantParam(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = variantParam(n.String())
	return nil
}

type cartItemRequest struct {
	Variant  variantParam `form:"variant" json:"variant" binding:"required"`
	Quantity int          `form:"quantity" json:"quantity" binding:"required,gt=0,max=2147483647"`
}

func (h *handlers) cartRequest(c *gin.Context) cartsvc.Request {
	req := cartsvc.Request{Locale: currentLocale(c)}
	if u := currentUser(c); u != nil {
		req.UserID = u.ID
	}
	if token, err := c.Cookie(h.cookie.CookieName); err == nil {
		req.Token = token
	}
	return req
}

func (h *handlers) showCart(c *gin.Context) {
	res, err := h.cart.Show(c.Request.Context(), h.cartRequest(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Language", currentLocale(c))
	c.JSON(http.StatusOK, res.Cart)
}

func (h *handlers) addToCart(c *gin.Context) {
	var body cartItemRequest
	if err := c.ShouldBind(&body); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.cart.Add(c.Request.Context(), h.cartRequest(c), strings.TrimSpace(string(body.Variant)), body.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeCart(c, res)
}

func (h *handlers) removeFromCart(c *gin.Context) {
	var body cartItemRequest
	if err := c.ShouldBind(&body); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.cart.Remove(c.Request.Context(), h.cartRequest(c), strings.TrimSpace(string(body.Variant)), body.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeCart(c, res)
}

func (h *handlers) writeCart(c *gin.Context, res *cartsvc.Result) {
	if res.Token != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookie.CookieName, res.Token, int(h.cookie.CookieMaxAge.Seconds()), "/", h.cookie.CookieDomain, h.cookie.CookieSecure, true)
	}
	c.Header("Content-Language", currentLocale(c))
	c.JSON(http.StatusOK, res.Cart)
}
