package credentials

// Redacted is the placeholder written over sensitive values in diagnostics
// output.
const Redacted = "**REDACTED**"

// sensitiveFields are credential blob fields that must never appear in
// diagnostics or logs.
var sensitiveFields = map[string]struct{}{
	"private_key":    {},
	"private_key_id": {},
	"client_secret":  {},
	"refresh_token":  {},
	"access_token":   {},
	"token":          {},
}

// RedactMap returns a copy of data with sensitive fields replaced by the
// Redacted placeholder. Nested maps are redacted recursively.
func RedactMap(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		if _, sensitive := sensitiveFields[key]; sensitive {
			out[key] = Redacted
			continue
		}
		if nested, ok := value.(map[string]interface{}); ok {
			out[key] = RedactMap(nested)
			continue
		}
		out[key] = value
	}
	return out
}

// Diagnostics returns a redacted view of the credential blob suitable for
// support bundles.
func (i *Info) Diagnostics() map[string]interface{} {
	return RedactMap(i.raw)
}
