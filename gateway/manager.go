package gateway

import (
	"net/http"

	"github.com/example/foodcart/pkg/orders"
	"github.com/example/foodcart/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) listRestaurants(c *gin.Context) {
	restaurants, err := g.catalog.Restaurants(c.Request.Context())
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, restaurants)
}

func (g *Gateway) availabilityGrid(c *gin.Context) {
	grid, err := g.catalog.AvailabilityGrid(c.Request.Context())
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, grid)
}

func (g *Gateway) setMenuAvailability(c *gin.Context) {
	restaurantID, ok := idParam(c, "id")
	if !ok {
		return
	}
	productID, ok := idParam(c, "productID")
	if !ok {
		return
	}
	var req menuAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badJSON(c, err)
		return
	}
	if errs := g.validator.Check(&req); errs != nil {
		g.validationFailed(c, errs)
		return
	}

	if err := g.catalog.SetMenuAvailability(c.Request.Context(), restaurantID, productID, *req.Availability); err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant_id": restaurantID,
		"product_id":    productID,
		"availability":  *req.Availability,
	})
}

func (g *Gateway) updateRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badJSON(c, err)
		return
	}
	if errs := g.validator.Check(&req); errs != nil {
		g.validationFailed(c, errs)
		return
	}

	restaurant, err := g.catalog.UpdateRestaurant(c.Request.Context(), id, req.Name, req.Address, req.ContactPhone)
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (g *Gateway) listActiveOrders(c *gin.Context) {
	rows, err := g.orders.ListActive(c.Request.Context())
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows, "total": len(rows)})
}

func (g *Gateway) getOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := g.orders.Get(c.Request.Context(), id)
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, order)
}

// updateOrder applies the fields present in the body together; nothing is
// saved when any of them is rejected.
func (g *Gateway) updateOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badJSON(c, err)
		return
	}
	if errs := g.validator.Check(&req); errs != nil {
		g.validationFailed(c, errs)
		return
	}

	order, err := g.orders.Update(c.Request.Context(), id, orders.Patch{
		Address:      req.Address,
		Comment:      req.Comment,
		RestaurantID: req.RestaurantID,
		Status:       req.Status,
	})
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) addOrderItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badJSON(c, err)
		return
	}
	if errs := g.validator.Check(&req); errs != nil {
		g.validationFailed(c, errs)
		return
	}

	order, err := g.orders.AddItem(c.Request.Context(), id, req.Product, req.Quantity)
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (g *Gateway) updateOrderItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemID")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badJSON(c, err)
		return
	}
	if errs := g.validator.Check(&req); errs != nil {
		g.validationFailed(c, errs)
		return
	}

	order, err := g.orders.UpdateItemQuantity(c.Request.Context(), id, itemID, req.Quantity)
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) removeOrderItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemID")
	if !ok {
		return
	}

	order, err := g.orders.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		g.respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, order)
}

const defaultHistoryLimit = 50

// entityHistory lists the audit entries of one order or restaurant, newest
// first.
func (g *Gateway) entityHistory(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var q historyQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			g.validationFailed(c, map[string]string{"limit": "Некорректное значение"})
			return
		}
		if errs := g.validator.Check(&q); errs != nil {
			g.validationFailed(c, errs)
			return
		}
		if q.Limit == 0 {
			q.Limit = defaultHistoryLimit
		}
		if g.history == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Журнал изменений отключен"})
			return
		}

		entries, err := g.history.GetAuditLogs(c.Request.Context(), entityType, id, q.Limit)
		if err != nil {
			g.respondError(c, err, http.StatusBadGateway)
			return
		}
		if entries == nil {
			entries = []*repository.AuditLog{}
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
	}
}
