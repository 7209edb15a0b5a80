package sources

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
)

// IsDocument reports whether an object key names a subject JSON document.
func IsDocument(key string) bool {
	return strings.HasSuffix(key, ".json")
}

// FieldFromDocument reads a top level field of a subject JSON document.
// A document without the field yields "Unknown"; a JSON null yields null.
// Non-string values are rendered with fmt.
func FieldFromDocument(data []byte, field, name string) (null.String, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return null.String{}, errors.WrapParse("json", name, err)
	}
	v, ok := doc[field]
	if !ok {
		return null.StringFrom(constants.SexUnknown), nil
	}
	switch v := v.(type) {
	case nil:
		return null.String{}, nil
	case string:
		return null.StringFrom(v), nil
	default:
		return null.StringFrom(fmt.Sprint(v)), nil
	}
}
