// Package mcp provides the Model Context Protocol server of the course
// scheduler.
//
// The MCP server is a thin client of the REST API: every tool call becomes
// an HTTP request against the api package, so it can run inside the server
// process (the /mcp endpoint) or as a separate stdio process.
//
// MCP Tools:
//   - list_schedules: List loaded schedules with their users
//   - get_schedule: Get one schedule with its courses and available names
//   - search_courses: Search the course catalog
//
// Transport Modes:
//   - Stdio: ServeStdio for local MCP clients
//   - HTTP: Client implements http.Handler for single JSON-RPC messages
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", version)
//	http.Handle("/mcp", client)
//
//	// or
//	client.ServeStdio()
package mcp
