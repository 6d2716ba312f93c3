package domain

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderPaid       = "paid"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

const (
	DeliveryShipping    = "shipping"
	DeliveryStorePickup = "store_pickup"
)

// OrderStatuses in lifecycle order.
var OrderStatuses = []string{
	OrderPending, OrderProcessing, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled,
}

var orderTransitions = map[string][]string{
	OrderPending:    {OrderProcessing, OrderPaid, OrderCancelled},
	OrderProcessing: {OrderPaid, OrderShipped, OrderCancelled},
	OrderPaid:       {OrderProcessing, OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

func ValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether an order in from may move to to.
// Delivered and cancelled orders are final.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID              int64       `db:"id" json:"order_id"`
	Reference       string      `db:"reference" json:"reference"`
	UserID          int64       `db:"user_id" json:"user_id"`
	Total           float64     `db:"total" json:"total"`
	Status          string      `db:"status" json:"status"`
	DeliveryMethod  string      `db:"delivery_method" json:"delivery_method"`
	StoreID         *int64      `db:"store_id" json:"store_id"`
	ShippingAddress string      `db:"shipping_address" json:"shipping_address"`
	TrackingNumber  string      `db:"tracking_number" json:"tracking_number"`
	CreatedAt       string      `db:"created_at" json:"created_at"`
	UpdatedAt       *string     `db:"updated_at" json:"updated_at"`
	Items           []OrderItem `db:"-" json:"items,omitempty"`
}

type OrderItem struct {
	ProductID   int64   `db:"product_id" json:"product_id"`
	Name        string  `db:"name" json:"name"`
	Quantity    int     `db:"quantity" json:"quantity"`
	PriceAtTime float64 `db:"price_at_time" json:"price_at_time"`
	Subtotal    float64 `db:"subtotal" json:"subtotal"`
}
