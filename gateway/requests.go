package gateway

import "github.com/example/foodcart/pkg/models"

type orderItemRequest struct {
	Product  uint `json:"product" validate:"required"`
	Quantity int  `json:"quantity" validate:"min=1,max=20"`
}

type createOrderRequest struct {
	FirstName     string             `json:"firstname" validate:"required,max=50,person_name"`
	LastName      string             `json:"lastname" validate:"required,max=50,person_name"`
	PhoneNumber   string             `json:"phonenumber" validate:"required,ru_phone"`
	Address       string             `json:"address" validate:"required,min=5,max=200"`
	Comment       string             `json:"comment" validate:"max=1000"`
	PaymentMethod string             `json:"payment_method" validate:"omitempty,oneof=electronic cash"`
	Items         []orderItemRequest `json:"items" validate:"required,min=1,unique=Product,dive"`
}

type createOrderResponse struct {
	ID uint `json:"id"`
}

type updateOrderRequest struct {
	Status       *models.OrderStatus `json:"status" validate:"omitempty,oneof=new processing restaurant delivery completed"`
	RestaurantID *uint               `json:"restaurant_id" validate:"omitempty,min=1"`
	Address      *string             `json:"address" validate:"omitempty,min=5,max=200"`
	Comment      *string             `json:"comment" validate:"omitempty,max=1000"`
}

type addItemRequest struct {
	Product  uint `json:"product" validate:"required"`
	Quantity int  `json:"quantity" validate:"min=1,max=20"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"min=1,max=20"`
}

type menuAvailabilityRequest struct {
	Availability *bool `json:"availability" validate:"required"`
}

type updateRestaurantRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=50"`
	Address      *string `json:"address" validate:"omitempty,min=5,max=100"`
	ContactPhone *string `json:"contact_phone" validate:"omitempty,max=50"`
}

type historyQuery struct {
	Limit int64 `form:"limit" json:"limit" validate:"omitempty,min=1,max=200"`
}
