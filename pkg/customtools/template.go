package customtools

import (
	"log"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// renderValue expands template placeholders in a step value against the
// tool call arguments. Strings containing "{{" render as text/template
// with the arguments as the data; rendered output is re-parsed as YAML so
// numbers, booleans and lists survive templating. Maps and lists recurse.
// Render failures keep the original string so a bad template degrades to
// a literal rather than aborting the step.
func renderValue(value interface{}, args map[string]interface{}) interface{} {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{{") {
			return v
		}
		return renderString(v, args)
	case map[string]interface{}:
		return renderMap(v, args)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = renderValue(item, args)
		}
		return out
	default:
		return value
	}
}

// renderMap applies renderValue to every entry. A nil map stays nil.
func renderMap(data, args map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = renderValue(v, args)
	}
	return out
}

func renderString(text string, args map[string]interface{}) interface{} {
	tmpl, err := template.New("step").Option("missingkey=zero").Parse(text)
	if err != nil {
		log.Printf("customtools: template parse failed: %v", err)
		return text
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, args); err != nil {
		log.Printf("customtools: template render failed: %v", err)
		return text
	}

	// missingkey=zero prints omitted arguments as "<no value>". Strip
	// them so an absent optional argument renders empty and re-parses to
	// null instead of reaching the service call as literal text.
	rendered := strings.ReplaceAll(sb.String(), "<no value>", "")
	if strings.TrimSpace(rendered) == "" {
		return nil
	}

	var parsed interface{}
	if err := yaml.Unmarshal([]byte(rendered), &parsed); err != nil || parsed == nil {
		return rendered
	}
	return parsed
}
