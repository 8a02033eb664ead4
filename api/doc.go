// Package api provides the HTTP REST API of the course scheduler.
//
// The REST API is read-only: schedules are edited through the WebSocket
// protocol, where every connection owns a client session. The API serves
// inspection and catalog search for dashboards and the MCP tools.
//
// Endpoints:
//
//   - GET /api/health - Liveness check
//   - GET /api/courses?q=&limit= - Search the course catalog
//   - GET /api/catalogs - List catalog files
//   - GET /api/schedules - List loaded schedules
//   - GET /api/schedules/{id} - Get a loaded or persisted schedule
//   - GET /api/clients - List connected clients
//   - GET /api/clients/{id} - Get a connected client
//   - GET /ws - WebSocket upgrade (when configured)
//
// Usage:
//
//	server := api.NewServer(scheduleService, api.WithWebSocket(wsHandler))
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with the status code matching their class
// (400 invalid_argument, 404 not_found, 409 conflict or illegal_state,
// 500 internal):
//
//	{
//	  "error": "client not found: abc",
//	  "code": "not_found"
//	}
package api
