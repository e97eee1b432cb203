package claude

import (
	"strings"
)

// DefaultModel is the recommended Claude chat model on Vertex AI.
const DefaultModel = "claude-sonnet-4-5@20250929"

// DefaultRegion is the region with the broadest Claude availability.
const DefaultRegion = "us-east5"

// modelMapping maps Anthropic-style model IDs to Vertex AI identifiers.
var modelMapping = map[string]string{
	"claude-sonnet-4-5-20250929": "claude-sonnet-4-5@20250929",
	"claude-sonnet-4-5":          "claude-sonnet-4-5@20250929",
	"claude-3-5-sonnet-20241022": "claude-3-5-sonnet-v2@20241022",
	"claude-3-5-sonnet":          "claude-3-5-sonnet-v2@20241022",
	"claude-3-5-haiku-20241022":  "claude-3-5-haiku@20241022",
	"claude-3-5-haiku":           "claude-3-5-haiku@20241022",
	"claude-3-opus-20240229":     "claude-3-opus@20240229",
	"claude-3-opus":              "claude-3-opus@20240229",
	"claude-3-haiku-20240307":    "claude-3-haiku@20240307",
	"claude-3-haiku":             "claude-3-haiku@20240307",
}

// regionAvailability lists which Claude models are served in which regions,
// per Google Cloud's published availability.
var regionAvailability = map[string][]string{
	"us-east5": {
		"claude-sonnet-4-5@20250929",
		"claude-3-5-sonnet-v2@20241022",
		"claude-3-5-haiku@20241022",
		"claude-3-opus@20240229",
		"claude-3-haiku@20240307",
	},
	"us-central1": {
		"claude-sonnet-4-5@20250929",
		"claude-3-5-sonnet-v2@20241022",
		"claude-3-5-haiku@20241022",
		"claude-3-haiku@20240307",
	},
	"europe-west1": {
		"claude-sonnet-4-5@20250929",
		"claude-3-5-sonnet-v2@20241022",
		"claude-3-5-haiku@20241022",
		"claude-3-haiku@20240307",
	},
	"asia-southeast1": {
		"claude-3-5-sonnet-v2@20241022",
		"claude-3-5-haiku@20241022",
		"claude-3-haiku@20240307",
	},
}

// NormalizeModelID converts an Anthropic-style model ID to the Vertex AI
// identifier format (name@date). IDs already in Vertex format pass through.
func NormalizeModelID(modelID string) string {
	if version, ok := modelMapping[modelID]; ok {
		return version
	}

	if strings.Contains(modelID, "@") {
		return modelID
	}

	// Infer name@date from trailing YYYYMMDD segments
	if strings.HasPrefix(modelID, "claude-") {
		parts := strings.Split(modelID, "-")
		lastPart := parts[len(parts)-1]
		if len(lastPart) == 8 && isNumeric(lastPart) {
			return strings.Join(parts[:len(parts)-1], "-") + "@" + lastPart
		}
	}

	return modelID
}

// IsModelAvailableInRegion checks if a model is served in a region. Unknown
// regions are assumed available and left to fail upstream.
func IsModelAvailableInRegion(vertexModelID, region string) bool {
	availableModels, ok := regionAvailability[region]
	if !ok {
		return true
	}

	for _, model := range availableModels {
		if model == vertexModelID {
			return true
		}
	}

	return false
}

// AvailableRegions returns the regions where a model is served.
func AvailableRegions(vertexModelID string) []string {
	var regions []string
	for region, models := range regionAvailability {
		for _, model := range models {
			if model == vertexModelID {
				regions = append(regions, region)
				break
			}
		}
	}
	return regions
}

// SupportedRegions returns all regions with Claude availability.
func SupportedRegions() []string {
	regions := make([]string, 0, len(regionAvailability))
	for region := range regionAvailability {
		regions = append(regions, region)
	}
	return regions
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
