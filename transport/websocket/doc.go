// Package websocket provides the WebSocket transport for the course scheduler.
//
// The websocket package implements:
//   - One registry session per WebSocket connection
//   - Request/response RPCs for the join protocol and course editing
//   - The shared schedule feed and the personal view feed
//   - Connection lifecycle management
//
// Architecture:
//
// The Hub tracks every open connection and implements session.Notifier, so
// schedule changes reach the right connection without blocking the
// document. The Handler upgrades HTTP requests, registers the connection
// with the schedule service and runs a read and a write goroutine per
// client. A client whose send buffer fills up is disconnected.
//
// Message Protocol:
//
// Requests are JSON objects with a client chosen id and an action:
//
//	{"id": 1, "action": "begin_join", "schedule_id": "s1"}
//	{"id": 2, "action": "complete_join", "user_name": "Alice"}
//	{"id": 3, "action": "create_schedule", "user_name": "Alice"}
//	{"id": 4, "action": "add_course", "course_id": "CS101"}
//	{"id": 5, "action": "remove_course", "course_id": "CS101"}
//	{"id": 6, "action": "search_courses", "query": "math", "limit": 10}
//	{"id": 7, "action": "leave"}
//
// Every request is answered with a "result" or an "error" event carrying
// the same id. Errors have a code (illegal_state, invalid_argument,
// conflict, not_found, internal) and, for name conflicts, the names still
// available. Feeds arrive as "schedule_update" and "personal_update" events.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	registry := session.NewRegistry(schedulePool, session.WithNotifier(hub))
//	handler := websocket.NewHandler(hub, scheduleService)
//	router.Handle("/ws", handler)
//
// Connection Lifecycle:
//
// 1. Client connects and receives a "connected" event with its connection id
// 2. Client begins joining a schedule and receives the shared feed
// 3. Client completes the join and receives its personal feed
// 4. Disconnection leaves the schedule and removes the session
package websocket
