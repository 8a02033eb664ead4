// Package service provides the application layer for the course scheduler.
//
// The service package implements:
//   - Client connection lifecycle on top of the session registry
//   - The join protocol and course editing per connection
//   - Read-only inspection of loaded and persisted schedules
//   - Catalog search
//   - Mapping of domain errors to transport error codes
//
// Core Interfaces:
//
// ScheduleService is the facade used by every transport (WebSocket, REST
// and MCP). ClientRegistry, ScheduleStore and CourseCatalog are the
// collaborators it orchestrates; in production they are session.Registry,
// pool.Pool and catalog.Manager.
//
// Usage:
//
//	catalogMgr, _ := catalog.NewManager("catalog")
//	schedulePool := pool.New(catalogMgr)
//	registry := session.NewRegistry(schedulePool, session.WithCourses(catalogMgr))
//	svc := service.NewScheduleService(registry, schedulePool, catalogMgr)
//
//	svc.Connect(ctx, connID)
//	info, err := svc.BeginJoin(ctx, connID, "s1")
//	view, err := svc.CompleteJoin(ctx, connID, "Alice")
//	if service.ErrorCode(err) == service.CodeConflict {
//		// offer service.AvailableNames(err)
//	}
//
// Errors:
//
// Operations return the domain errors unchanged (wrapped with context).
// ErrorCode classifies them as illegal_state, invalid_argument, conflict,
// not_found or internal, and HTTPStatus turns a code into a status code.
package service
