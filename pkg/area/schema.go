package area

import "fmt"

// Redis key pattern helpers
//
// Key pattern: jotter:{town}:{entity}[:{id}]
// Channel pattern: jotter:{town}:...:events

// RequestsKey returns the Redis list holding requests for the authority.
// Pattern: jotter:{town}:requests
func RequestsKey(town string) string {
	return fmt.Sprintf("jotter:%s:requests", town)
}

// SnapshotKey returns the Redis hash caching an area's latest snapshot.
// Pattern: jotter:{town}:area:{area_id}
func SnapshotKey(town, areaID string) string {
	return fmt.Sprintf("jotter:%s:area:%s", town, areaID)
}

// AreaIndexKey returns the Redis set of area ids that have published a snapshot.
// Pattern: jotter:{town}:areas
func AreaIndexKey(town string) string {
	return fmt.Sprintf("jotter:%s:areas", town)
}

// AreaEventsChannel returns the Pub/Sub channel carrying one area's snapshots.
// Pattern: jotter:{town}:area:{area_id}:events
func AreaEventsChannel(town, areaID string) string {
	return fmt.Sprintf("jotter:%s:area:%s:events", town, areaID)
}

// TownEventsChannel returns the Pub/Sub channel for town-wide events such as
// player movement.
// Pattern: jotter:{town}:town_events
func TownEventsChannel(town string) string {
	return fmt.Sprintf("jotter:%s:town_events", town)
}
