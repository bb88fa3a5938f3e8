package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

type migrationFile struct {
	version string
	name    string
}

// ValidateDir checks every .sql file in dir: the filename pattern, unique
// versions and an Up section followed by a Down section. All problems are
// reported together.
func ValidateDir(dir string) error {
	files, err := scanDir(dir)
	if err != nil {
		return err
	}

	var problems error
	seen := make(map[string]string, len(files))
	for _, f := range files {
		if f.version == "" {
			problems = multierr.Append(problems, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", f.name))
			continue
		}
		if prev, ok := seen[f.version]; ok {
			problems = multierr.Append(problems, fmt.Errorf("duplicate migration version %s in %q and %q", f.version, prev, f.name))
			continue
		}
		seen[f.version] = f.name
		problems = multierr.Append(problems, checkMarkers(filepath.Join(dir, f.name)))
	}
	return problems
}

func checkMarkers(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %q: %w", path, err)
	}
	txt := string(b)
	name := filepath.Base(path)
	up := strings.Index(txt, upMarker)
	down := strings.Index(txt, downMarker)
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing %q", name, upMarker)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", name, downMarker)
	case down < up:
		return fmt.Errorf("migration %q declares Down before Up", name)
	}
	return nil
}

// scanDir lists .sql files sorted by name. Files that do not match the naming
// pattern come back with an empty version.
func scanDir(dir string) ([]migrationFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		f := migrationFile{name: e.Name()}
		if m := sqlFileRe.FindStringSubmatch(e.Name()); m != nil {
			f.version = m[1]
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// latestVersion returns the highest well-formed version in dir, or "".
func latestVersion(dir string) (string, error) {
	files, err := scanDir(dir)
	if err != nil {
		return "", err
	}
	latest := ""
	for _, f := range files {
		if f.version > latest {
			latest = f.version
		}
	}
	return latest, nil
}
