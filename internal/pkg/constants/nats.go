package constants

// JetStream streams
const (
	StreamRides = "RIDE_STREAM"
	StreamChat  = "CHAT_STREAM"
)

// NATS Subjects
const (
	// Ride row changes, scoped to one participant
	SubjectRideChangedPassenger = "ride.changed.passenger.%s" // Format: ride.changed.passenger.{passenger_id}
	SubjectRideChangedDriver    = "ride.changed.driver.%s"    // Format: ride.changed.driver.{driver_id}
	SubjectRideOffered          = "ride.offered.driver.%s"    // Format: ride.offered.driver.{driver_id}
	SubjectRideRated            = "ride.rated"

	// Chat row changes, scoped to one recipient
	SubjectChatMessage = "chat.message.user.%s" // Format: chat.message.user.{user_id}

	SubjectRideAll = "ride.>"
	SubjectChatAll = "chat.>"
)

// Durable consumers
const (
	ConsumerRatingAggregator = "ride_rated_ratings"
)
