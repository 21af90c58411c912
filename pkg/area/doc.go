// Package area defines the wire protocol shared by the note-taking authority
// and its participants, and the Redis transport that carries it.
//
// # Overview
//
// An area is one shared note-taking location in a town. The authority owns the
// state of every area and publishes a Snapshot after each change. Participants
// mirror those snapshots and send Commands back.
//
// # Protocol
//
// Snapshots travel inside an event envelope:
//
//	{"name": "interactableUpdate", "payload": {"id": "...", "type": "NoteTakingArea", "occupants": [...], "notes": [...]}}
//
// The notes field is omitted when the area has been reset after its last
// occupant left. Occupancy changes are announced with "playerMoved" events on
// the town channel.
//
// Participants talk to the authority through Requests (command, enter, exit)
// pushed onto a single town-wide Redis list, so the authority sees them in
// arrival order.
//
// # Redis Schema
//
// All keys and channels are namespaced by town name so several towns can share
// one Redis server:
//
//	Requests:        jotter:{town}:requests               (LIST, RPUSH/BLPOP)
//	Area snapshot:   jotter:{town}:area:{area_id}         (HASH)
//	Area index:      jotter:{town}:areas                  (SET)
//	Area events:     jotter:{town}:area:{area_id}:events  (Pub/Sub)
//	Town events:     jotter:{town}:town_events            (Pub/Sub)
//
// # Usage Example
//
//	client, err := area.NewClient(&redis.Options{Addr: "localhost:6379"}, "main-street")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Enter(ctx, "notes-corner", "player-1"); err != nil {
//		log.Fatal(err)
//	}
//	cmd := area.NewUpdateCommand(notes.NewCollection(notes.Note{ID: "n1", Title: "Plan"}))
//	if err := client.SendCommand(ctx, "notes-corner", cmd); err != nil {
//		log.Fatal(err)
//	}
package area
