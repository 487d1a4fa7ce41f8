package scoring

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed match_schema.json
var matchSchema string

var matchSchemaLoader = gojsonschema.NewStringLoader(matchSchema)

// ErrInvalidResponse is returned when the LLM output does not match the expected shape
var ErrInvalidResponse = errors.New("invalid scoring response")

// validateMatch checks a raw JSON document against the match result schema
func validateMatch(doc string) error {
	result, err := gojsonschema.Validate(matchSchemaLoader, gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, fmt.Sprintf("%s: %s", field, desc.Description()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(problems, "; "))
}
