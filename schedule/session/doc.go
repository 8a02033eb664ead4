// Package session provides client session management for the course
// scheduler.
//
// The session package implements:
//   - A Registry mapping connection IDs to client sessions
//   - The two-phase join protocol (BeginJoin, then CompleteJoin)
//   - Leaving and disconnect cleanup
//   - Shared and personal change feeds towards the transport layer
//
// Core Types:
//
// Registry is an explicitly constructed directory of connected clients.
// Session represents one connected participant with its user name, the
// schedule it joined and its personal view of that schedule.
//
// Join Protocol:
//
//	Unjoined --BeginJoin--> Joining --CompleteJoin--> Joined --Leave--> Left
//	                        Joining --Leave--> Left
//
// BeginJoin attaches the session to a shared schedule and starts the shared
// feed. CompleteJoin claims a unique user name in that schedule and starts
// the personal feed. A failed call leaves the session in its prior state.
//
// Usage:
//
//	registry := session.NewRegistry(schedulePool,
//		session.WithNotifier(hub),
//		session.WithCourses(catalogManager),
//	)
//
//	sess, err := registry.AddClient(connID)
//	if _, err := sess.BeginJoin(ctx, "s1"); err != nil { ... }
//	if err := sess.CompleteJoin("Alice"); err != nil { ... }
//
//	// on disconnect
//	registry.RemoveClient(connID)
//
// Name Release:
//
// When a session leaves, its user name is returned to the schedule's
// available names and can be claimed again by another client.
package session
