package validation

import (
	"fmt"
	"strings"

	"github.com/hoteldesk/internal/apperrors"
	"github.com/xeipuuv/gojsonschema"
)

const scheduleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["recipients", "parameters"],
  "properties": {
    "recipients": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "format": "email"}
    },
    "parameters": {
      "type": "object",
      "properties": {
        "window_days": {"type": "integer", "minimum": 1, "maximum": 366},
        "attachment_format": {"type": "string", "enum": ["json", "csv", "xlsx", "pdf"]}
      }
    }
  }
}`

var schedule *gojsonschema.Schema

func init() {
	var err error
	schedule, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(scheduleSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid schedule schema: %v", err))
	}
}

// ValidateSchedule checks the recipient list and parameter bag of a
// scheduled report. Duplicate recipients are allowed.
func ValidateSchedule(recipients []string, parameters map[string]interface{}) error {
	if recipients == nil {
		recipients = []string{}
	}
	if parameters == nil {
		parameters = map[string]interface{}{}
	}
	doc := map[string]interface{}{
		"recipients": recipients,
		"parameters": parameters,
	}

	result, err := schedule.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}
