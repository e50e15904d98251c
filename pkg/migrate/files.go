package migrate

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
)

var (
	migrationNameRe = regexp.MustCompile(`^\d{14}_[a-z0-9_]+\.sql$`)
	unsafeNameRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// The same files run on Postgres in production and on SQLite in dev and
// tests, so dialect-only syntax is rejected up front.
var nonPortable = []struct {
	re   *regexp.Regexp
	hint string
}{
	{regexp.MustCompile(`(?i)\bJSONB\b`), "JSONB is postgres-only, store JSON as TEXT"},
	{regexp.MustCompile(`(?i)\b(BIG)?SERIAL\b`), "SERIAL is postgres-only, use string ids"},
	{regexp.MustCompile(`(?i)\bTIMESTAMPTZ\b`), "TIMESTAMPTZ is postgres-only, use TIMESTAMP"},
	{regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`), "AUTOINCREMENT is sqlite-only"},
	{regexp.MustCompile(`(?i)\bNOW\(\)`), "use CURRENT_TIMESTAMP instead of NOW()"},
	{regexp.MustCompile(`::[a-z]`), "postgres casts (::type) do not run on sqlite"},
}

// CreateSQLMigration writes an empty <UTC timestamp>_<name>.sql into dir and
// returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("migrate: dir is required")
	}
	slug := strings.Trim(unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migrate: name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: create dir: %w", err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format("20060102150405")+"_"+slug+".sql")
	body := "-- +goose Up\n-- " + slug + "\n\n-- +goose Down\n-- undo " + slug + "\n"

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(body); err != nil {
		return "", fmt.Errorf("migrate: write %s: %w", path, err)
	}
	return path, nil
}

// ValidateDir reports every problem in dir at once. Besides goose being able
// to collect the files, names must be <YYYYMMDDHHMMSS>_<slug>.sql, the Up
// section must precede Down and hold at least one statement, and nothing may
// use dialect-only syntax.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("migrate: dir is required")
	}
	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return fmt.Errorf("migrate: collect %s: %w", dir, err)
	}
	if len(migrations) == 0 {
		return fmt.Errorf("migrate: no migrations in %s", dir)
	}

	var problems []string
	for _, m := range migrations {
		name := filepath.Base(m.Source)
		if !migrationNameRe.MatchString(name) {
			problems = append(problems, fmt.Sprintf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		fileProblems, err := lintSQLFile(m.Source)
		if err != nil {
			return err
		}
		for _, p := range fileProblems {
			problems = append(problems, name+": "+p)
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("migrate: invalid migrations:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func lintSQLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	defer f.Close()

	var (
		problems     []string
		upAt, downAt int
		upStatements int
	)
	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "-- +goose Up"):
			upAt = lineNo
			continue
		case strings.HasPrefix(line, "-- +goose Down"):
			downAt = lineNo
			continue
		case line == "" || strings.HasPrefix(line, "--"):
			continue
		}
		if upAt > 0 && downAt == 0 {
			upStatements++
		}
		for _, rule := range nonPortable {
			if rule.re.MatchString(line) {
				problems = append(problems, fmt.Sprintf("line %d: %s", lineNo, rule.hint))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("migrate: read %s: %w", path, err)
	}

	switch {
	case upAt == 0:
		problems = append(problems, `missing "-- +goose Up"`)
	case downAt == 0:
		problems = append(problems, `missing "-- +goose Down"`)
	case downAt < upAt:
		problems = append(problems, "Down section comes before Up")
	case upStatements == 0:
		problems = append(problems, "Up section has no statements")
	}
	return problems, nil
}
