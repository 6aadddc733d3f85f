package backend

import (
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidResponse is returned when a backend body does not match the wire schema.
var ErrInvalidResponse = errors.New("backend response does not match schema")

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	PathWeeklyChart: "schemas/weekly_chart.json",
	PathInfo:        "schemas/user_info.json",
}

var (
	schemaOnce sync.Once
	schemas    map[string]*gojsonschema.Schema
	errSchemas error
)

func loadSchemas() (map[string]*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemas = make(map[string]*gojsonschema.Schema, len(schemaFiles))

		for path, file := range schemaFiles {
			raw, err := schemaFS.ReadFile(file)
			if err != nil {
				errSchemas = fmt.Errorf("read schema %s: %w", file, err)

				return
			}

			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				errSchemas = fmt.Errorf("compile schema %s: %w", file, err)

				return
			}

			schemas[path] = schema
		}
	})

	return schemas, errSchemas
}

// validateResponse checks body against the schema registered for path.
// Paths without a schema pass.
func validateResponse(path string, body []byte) error {
	all, err := loadSchemas()
	if err != nil {
		return err
	}

	schema, ok := all[path]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidResponse, path, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s: %s", ErrInvalidResponse, path, strings.Join(msgs, "; "))
}
