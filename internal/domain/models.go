package domain

type Category struct {
	ID          int64   `db:"id" json:"category_id"`
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	ImageURL    string  `db:"category_image" json:"category_image"`
	ParentID    *int64  `db:"parent_category_id" json:"parent_category_id"`
	IsActive    bool    `db:"is_active" json:"is_active"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
	UpdatedAt   *string `db:"updated_at" json:"updated_at"`
}

// CategoryNode is a category with its active descendants down to some depth.
type CategoryNode struct {
	Category
	Children []CategoryNode `json:"children"`
}

type Product struct {
	ID          int64   `db:"id" json:"product_id"`
	Name        string  `db:"name" json:"name"`
	SKU         string  `db:"sku" json:"sku"`
	Price       float64 `db:"price" json:"price"`
	Description string  `db:"description" json:"description"`
	ImageURL    string  `db:"image_url" json:"image_url"`
	OnlineStock int     `db:"online_stock" json:"online_stock"`
	IsFeatured  bool    `db:"is_featured" json:"is_featured"`
	IsActive    bool    `db:"is_active" json:"is_active"`
	ProductType string  `db:"product_type" json:"product_type"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
	UpdatedAt   *string `db:"updated_at" json:"updated_at"`
	CategoryIDs []int64 `db:"-" json:"category_ids"`
}

const (
	StockIn  = "IN_STOCK"
	StockLow = "LOW_STOCK"
	StockOut = "OUT_OF_STOCK"
)

type Availability struct {
	ProductID int64  `json:"product_id"`
	StoreID   *int64 `json:"store_id,omitempty"`
	Status    string `json:"status"`
	Qty       int    `json:"qty"`
}

type Store struct {
	ID        int64   `db:"id" json:"store_id"`
	Name      string  `db:"name" json:"name"`
	Address   string  `db:"address" json:"address"`
	Phone     string  `db:"phone" json:"phone"`
	Email     string  `db:"email" json:"email"`
	IsActive  bool    `db:"is_active" json:"is_active"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	UpdatedAt *string `db:"updated_at" json:"updated_at"`
}

// DefaultLowStockThreshold applies when an inventory row is saved without one.
const DefaultLowStockThreshold = 5

type InventoryRow struct {
	StoreID           int64   `db:"store_id" json:"store_id"`
	ProductID         int64   `db:"product_id" json:"product_id"`
	ProductName       string  `db:"product_name" json:"product_name"`
	SKU               string  `db:"sku" json:"sku"`
	Quantity          int     `db:"quantity" json:"quantity"`
	Location          string  `db:"location" json:"location"`
	LowStockThreshold int     `db:"low_stock_threshold" json:"low_stock_threshold"`
	UpdatedAt         *string `db:"updated_at" json:"updated_at"`
}

type CartItem struct {
	ProductID int64   `db:"product_id" json:"product_id"`
	Name      string  `db:"name" json:"name"`
	SKU       string  `db:"sku" json:"sku"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
	Subtotal  float64 `db:"subtotal" json:"subtotal"`
}

type Cart struct {
	ID    int64      `json:"cart_id"`
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

const (
	MovementAdjustment  = "adjustment"
	MovementReservation = "online_reservation"
	MovementRelease     = "release"
)

// InventoryMovement is one signed change to a store shelf count.
type InventoryMovement struct {
	ID           int64  `db:"id" json:"movement_id"`
	StoreID      int64  `db:"store_id" json:"store_id"`
	ProductID    int64  `db:"product_id" json:"product_id"`
	UserID       *int64 `db:"user_id" json:"user_id"`
	MovementType string `db:"movement_type" json:"movement_type"`
	Quantity     int    `db:"quantity" json:"quantity"`
	Reference    string `db:"reference" json:"reference"`
	CreatedAt    string `db:"created_at" json:"created_at"`
}

type WishlistItem struct {
	ProductID int64   `db:"product_id" json:"product_id"`
	Name      string  `db:"name" json:"name"`
	SKU       string  `db:"sku" json:"sku"`
	Price     float64 `db:"price" json:"price"`
	IsActive  bool    `db:"is_active" json:"is_active"`
	AddedAt   string  `db:"created_at" json:"added_at"`
}
