// Package session provides game session storage for the ladder game.
//
// The session package implements:
//   - Thread-safe session storage keyed by game id
//   - Whole-record replacement with a monotonic turn sequence
//   - Cleanup of finished, idle sessions
//   - A file archive for final game results
//
// Core Types:
//
// Manager implements service.SessionStore. A stored service.Session is never
// modified; Update swaps in a new record and refuses one whose TurnSeq is
// behind the stored record, so a slow writer cannot roll a game back.
//
// FileArchive writes one game-<id>.json file per finished game and can be
// passed to the service as a ResultSink.
//
// Usage:
//
//	manager := session.NewManager()
//	archive, err := session.NewFileArchive("results")
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc := service.NewGameService(manager, rulesets, service.WithResultSink(archive))
package session
