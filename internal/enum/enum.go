package enum

// ── Group A: Realtime event types ──

const (
	EventOrderCreated         = "order.created"
	EventOrderUpdated         = "order.updated"
	EventPizzaCreated         = "pizza.created"
	EventPizzaUpdated         = "pizza.updated"
	EventPizzaDeleted         = "pizza.deleted"
	EventNotificationsChanged = "notifications.changed"
)

// ── Group B: Realtime rooms ──

const (
	RoomAll    = "all"
	RoomAdmins = "admins"

	// RoomUserPrefix is followed by the profile id: "user:<uuid>".
	RoomUserPrefix = "user:"
)

// ── Group C: Storage drivers ──

const (
	StorageDisk     = "disk"
	StorageSupabase = "supabase"
)
