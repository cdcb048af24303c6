package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// submitSchema constrains the URL-submission payload shape before any field
// handling runs. Structural rejects here never create a job row.
const submitSchema = `{
	"type": "object",
	"required": ["source_url"],
	"properties": {
		"source_url": {"type": "string", "minLength": 1, "maxLength": 2048},
		"title": {"type": "string", "maxLength": 255},
		"candidate_name": {"type": "string", "maxLength": 255}
	},
	"additionalProperties": false
}`

var submitSchemaLoader = gojsonschema.NewStringLoader(submitSchema)

func validateSubmitBody(body []byte) error {
	res, err := gojsonschema.Validate(submitSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid payload")
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(msgs, "; "))
}
