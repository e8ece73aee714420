package shared

const (
	ProjectID = "geohive-project" // Can be overridden by env var in main if needed

	// QueueScore is the single, unsharded score-delta queue. Observation and
	// datamap queue names are per shard and built by pkg/queue.
	QueueScore = "update_score"

	CollectionUsers   = "users"
	CollectionAPIKeys = "api_keys"
)

// Technology names used for queue naming, shard collections and metric tags.
const (
	TechBlue = "blue"
	TechCell = "cell"
	TechWifi = "wifi"
)

// Technologies lists the supported station technologies in processing order.
var Technologies = []string{TechBlue, TechCell, TechWifi}
