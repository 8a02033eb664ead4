// Package catalog provides the course catalog for the course scheduler.
//
// The catalog package handles:
//   - Loading course catalogs from JSON files
//   - Catalog validation (unique, non-empty course IDs)
//   - Course search by free-text filter
//   - Single course lookup by ID
//
// Catalog Format:
//
// Catalogs are stored as JSON files in the catalog directory. Each file
// holds a named list of courses:
//
//	{
//	  "name": "Winter term",
//	  "courses": [
//	    {"id": "L.104.12270", "name": "Grundlagen der Programmierung", "category": "Grundlagen"}
//	  ]
//	}
//
// Usage:
//
//	manager, err := catalog.NewManager("catalog")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// All courses whose name, short name or category contains "grundlagen"
//	courses, err := manager.LoadCourses(ctx, "grundlagen")
//
// Reads are idempotent and never modify the files on disk.
package catalog
