package constant

// Order status is stored as free text; only these two values carry
// special meaning in the workflow.
const (
	OrderStatusPending   = "Pending"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

// Object key namespaces in the blob store.
const (
	PaymentProofKeyPrefix = "payments/"
	ProductImageKeyPrefix = "products/"
	AdImageKeyPrefix      = "ads/"
)
