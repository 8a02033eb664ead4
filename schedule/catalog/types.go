package catalog

// Course is a single entry of the course catalog
type Course struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
	Category  string `json:"category,omitempty"`
	Lecturer  string `json:"lecturer,omitempty"`
	Semester  string `json:"semester,omitempty"`
}

// File is the on-disk representation of one catalog file
type File struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Courses     []Course `json:"courses"`
}

// FileInfo describes a catalog file available in the catalog directory
type FileInfo struct {
	Filename    string `json:"filename"`
	CatalogID   string `json:"catalog_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CourseCount int    `json:"course_count"`
}
