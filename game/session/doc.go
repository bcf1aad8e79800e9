// Package session keeps the live puzzle sessions of a server.
//
// Every session owns its own engine and playback controller, so moves and
// solver runs in one session never touch another. Sessions are stored under
// a case-insensitive id; when no id is given the manager generates a
// 4-character hex id from crypto/rand and retries on collision.
//
// Usage:
//
//	solver := solverclient.NewClient("http://localhost:5000")
//	manager := session.NewManager(solver)
//
//	sess, err := manager.Create("", engine.ClassicLayout())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// Cleanup:
//
// Deleting a session cancels its playback and runs the close hooks
// registered on it. CleanupExpiredSessions removes idle sessions, but never
// one whose controller is Busy.
package session
