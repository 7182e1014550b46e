package constants

// Redis key formats
const (
	KeyDriverGeo      = "driver:geo"         // geo set of online drivers
	KeyDriverPresence = "driver:presence:%s" // Format: driver:presence:{driver_id}, expires when pings stop
)
