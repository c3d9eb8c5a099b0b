package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "pending"
	OrderStatusInProgress = "in_progress"
	OrderStatusReady      = "ready"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleStaff   = "STAFF"
	UserRoleKitchen = "KITCHEN"
)

const (
	TicketModeKitchen = "kitchen"
	TicketModeReceipt = "receipt"
)

const (
	EventOrderStatusChanged = "order.status_changed"
	EventOrderPrinted       = "order.printed"
)
