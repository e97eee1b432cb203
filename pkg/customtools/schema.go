package customtools

import "fmt"

// ValidateArgs checks tool call arguments against a JSON-Schema-style
// parameter block: required fields, property types and enum membership.
func ValidateArgs(args, schema map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	if required, ok := schema["required"].([]interface{}); ok {
		for _, req := range required {
			field, ok := req.(string)
			if !ok {
				continue
			}
			if _, exists := args[field]; !exists {
				return fmt.Errorf("required field %s is missing", field)
			}
		}
	}

	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return nil
	}

	for field, value := range args {
		propSchema, exists := properties[field]
		if !exists {
			continue
		}
		if err := validateFieldSchema(field, value, propSchema); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldSchema(field string, value interface{}, propSchema interface{}) error {
	schemaMap, ok := propSchema.(map[string]interface{})
	if !ok {
		return nil
	}

	if propType, ok := schemaMap["type"].(string); ok {
		if err := validateType(field, value, propType); err != nil {
			return err
		}
	}

	if enum, ok := schemaMap["enum"].([]interface{}); ok {
		if err := validateEnum(field, value, enum); err != nil {
			return err
		}
	}
	return nil
}

func validateType(field string, value interface{}, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %s must be a string", field)
		}
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("field %s must be a number", field)
		}
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("field %s must be an integer", field)
			}
		default:
			return fmt.Errorf("field %s must be an integer", field)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field %s must be a boolean", field)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("field %s must be an array", field)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("field %s must be an object", field)
		}
	}
	return nil
}

func validateEnum(field string, value interface{}, enum []interface{}) error {
	for _, allowed := range enum {
		if value == allowed {
			return nil
		}
	}
	return fmt.Errorf("field %s value %v is not in allowed values %v", field, value, enum)
}
