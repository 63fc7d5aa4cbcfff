package gateway

import (
	"errors"
	"net/http"

	"github.com/example/foodcart/pkg/catalog"
	"github.com/example/foodcart/pkg/orders"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fieldErrors maps service validation failures onto the request field they
// belong to.
var fieldErrors = []struct {
	err     error
	field   string
	message string
}{
	{orders.ErrNoItems, "items", "Список товаров не может быть пустым"},
	{orders.ErrDuplicateProduct, "items", "Товары в заказе не должны повторяться"},
	{orders.ErrProductUnavailable, "items", "Товар отсутствует или недоступен для заказа"},
	{orders.ErrInvalidQuantity, "quantity", "Количество должно быть от 1 до 20"},
	{orders.ErrInvalidPhone, "phonenumber", "Введен некорректный номер телефона"},
	{orders.ErrAddressOutOfBounds, "address", "Адрес должен содержать от 5 до 200 символов"},
	{orders.ErrInvalidPayment, "payment_method", "Недопустимый способ оплаты"},
	{orders.ErrInvalidStatus, "status", "Недопустимый статус заказа"},
}

var notFoundErrors = []error{
	orders.ErrNotFound,
	orders.ErrItemNotFound,
	orders.ErrRestaurantNotFound,
	catalog.ErrRestaurantNotFound,
	catalog.ErrProductNotFound,
	gorm.ErrRecordNotFound,
}

func (g *Gateway) validationFailed(c *gin.Context, errs map[string]string) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
}

func (g *Gateway) badJSON(c *gin.Context, err error) {
	_ = c.Error(err)
	g.validationFailed(c, map[string]string{"non_field_errors": "Некорректный JSON в теле запроса"})
}

// respondError writes the response for a service error. Errors that are not
// recognised get unexpectedStatus and a generic message.
func (g *Gateway) respondError(c *gin.Context, err error, unexpectedStatus int) {
	_ = c.Error(err)
	for _, fe := range fieldErrors {
		if errors.Is(err, fe.err) {
			g.validationFailed(c, map[string]string{fe.field: fe.message})
			return
		}
	}
	for _, nf := range notFoundErrors {
		if errors.Is(err, nf) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
	}

	g.logger.Error("Request failed",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(unexpectedStatus, gin.H{"error": "Не удалось обработать запрос"})
}
