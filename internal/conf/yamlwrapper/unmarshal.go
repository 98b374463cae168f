// Package yamlwrapper contains a YAML unmarshaler.
package yamlwrapper

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/bluenviron/fmp4mux/internal/conf/jsonwrapper"
)

// differences with respect to the standard package:
// - non-string keys are converted into strings
// - all differences of jsonwrapper are inherited

func convertKeys(i any) any {
	switch x := i.(type) {
	case map[any]any:
		m2 := make(map[string]any, len(x))
		for k, v := range x {
			m2[fmt.Sprint(k)] = convertKeys(v)
		}
		return m2

	case []any:
		a2 := make([]any, len(x))
		for i, v := range x {
			a2[i] = convertKeys(v)
		}
		return a2
	}

	return i
}

// Unmarshal loads the configuration from YAML.
func Unmarshal(buf []byte, dest any) error {
	// UnmarshalStrict rejects duplicate mapping keys.
	var temp any
	err := yaml.UnmarshalStrict(buf, &temp)
	if err != nil {
		return err
	}

	// convert the generic map into JSON
	buf, err = json.Marshal(convertKeys(temp))
	if err != nil {
		return err
	}

	// load JSON into destination
	return jsonwrapper.Unmarshal(buf, dest)
}
