package repositories

import "encoding/json"

// stringField reads a string value out of a field bag, tolerating absence
// and non-string values.
func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// jsonMap serializes a field bag for a jsonb merge expression.
func jsonMap(fields map[string]interface{}) (string, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
