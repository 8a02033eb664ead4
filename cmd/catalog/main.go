// Command catalog prints a quick, human-readable summary of the course
// catalog files in a directory: course counts per file and category,
// validation problems, and course IDs defined by more than one file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/course-scheduler/schedule/catalog"
)

// FileReport summarizes one catalog file
type FileReport struct {
	Filename   string
	Name       string
	Courses    int
	Categories map[string]int
	Problem    string
}

// Report summarizes a catalog directory
type Report struct {
	Files      []*FileReport
	Duplicates map[string][]string
}

func main() {
	cmd := &cli.Command{
		Name:      "catalog",
		Usage:     "summarize course catalog files",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "catalog",
				Usage:   "directory containing catalog JSON files",
				Sources: cli.EnvVars("CATALOG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("dir")
			if cmd.Args().Len() > 0 {
				dir = cmd.Args().First()
			}

			report, err := analyzeDir(dir)
			if err != nil {
				return err
			}
			printReport(os.Stdout, report)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func analyzeDir(dir string) (*Report, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	report := &Report{Duplicates: make(map[string][]string)}
	definedIn := make(map[string][]string)

	for _, path := range paths {
		fr, file := analyzeFile(path)
		report.Files = append(report.Files, fr)
		if file == nil {
			continue
		}

		for _, c := range file.Courses {
			definedIn[c.ID] = append(definedIn[c.ID], fr.Filename)
		}
	}

	for id, files := range definedIn {
		if len(files) > 1 {
			report.Duplicates[id] = files
		}
	}

	return report, nil
}

func analyzeFile(path string) (*FileReport, *catalog.File) {
	fr := &FileReport{
		Filename:   filepath.Base(path),
		Categories: make(map[string]int),
	}

	file, err := readFile(path)
	if err != nil {
		fr.Problem = err.Error()
		return fr, nil
	}

	fr.Name = file.Name
	fr.Courses = len(file.Courses)
	for _, c := range file.Courses {
		category := c.Category
		if category == "" {
			category = "(none)"
		}
		fr.Categories[category]++
	}

	if err := catalog.Validate(file); err != nil {
		fr.Problem = err.Error()
	}
	return fr, file
}

func readFile(path string) (*catalog.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	var file catalog.File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	return &file, nil
}

func printReport(w io.Writer, report *Report) {
	total := 0
	for _, fr := range report.Files {
		fmt.Fprintf(w, "\n=== %s ===\n", fr.Filename)
		if fr.Name != "" {
			fmt.Fprintf(w, "Name: %s\n", fr.Name)
		}
		fmt.Fprintf(w, "Courses: %d\n", fr.Courses)
		total += fr.Courses

		categories := make([]string, 0, len(fr.Categories))
		for c := range fr.Categories {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(w, "  %-30s %d\n", c, fr.Categories[c])
		}

		if fr.Problem != "" {
			fmt.Fprintf(w, "WARNING: %s\n", fr.Problem)
		} else {
			fmt.Fprintf(w, "OK\n")
		}
	}

	fmt.Fprintf(w, "\nFiles: %d, courses: %d\n", len(report.Files), total)

	if len(report.Duplicates) == 0 {
		return
	}
	ids := make([]string, 0, len(report.Duplicates))
	for id := range report.Duplicates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintf(w, "Course IDs defined more than once (first file wins):\n")
	for _, id := range ids {
		fmt.Fprintf(w, "  %s: %s\n", id, strings.Join(report.Duplicates[id], ", "))
	}
}
