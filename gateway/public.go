package gateway

import (
	"net/http"

	"github.com/example/foodcart/pkg/models"
	"github.com/example/foodcart/pkg/orders"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) listProducts(c *gin.Context) {
	products, err := g.catalog.AvailableProducts(c.Request.Context())
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (g *Gateway) listBanners(c *gin.Context) {
	c.JSON(http.StatusOK, g.catalog.Banners())
}

func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badJSON(c, err)
		return
	}
	if errs := g.validator.Check(&req); errs != nil {
		g.validationFailed(c, errs)
		return
	}

	in := orders.CreateInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   req.PhoneNumber,
		Address:       req.Address,
		Comment:       req.Comment,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Items:         make([]orders.ItemInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, orders.ItemInput{ProductID: item.Product, Quantity: item.Quantity})
	}

	order, err := g.orders.Create(c.Request.Context(), in)
	if err != nil {
		g.respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusCreated, createOrderResponse{ID: order.ID})
}
