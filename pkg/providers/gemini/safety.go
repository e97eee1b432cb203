package gemini

import "fmt"

// Harm block thresholds accepted by the API.
const (
	BlockNone           = "BLOCK_NONE"
	BlockOnlyHigh       = "BLOCK_ONLY_HIGH"
	BlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
	BlockLowAndAbove    = "BLOCK_LOW_AND_ABOVE"
)

// DefaultHarmBlockThreshold matches the integration default.
const DefaultHarmBlockThreshold = BlockMediumAndAbove

// harmCategories are the four categories a safety setting must cover.
var harmCategories = []string{
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
}

var validThresholds = map[string]struct{}{
	BlockNone:           {},
	BlockOnlyHigh:       {},
	BlockMediumAndAbove: {},
	BlockLowAndAbove:    {},
}

// ValidateHarmBlockThreshold checks a configured threshold value.
func ValidateHarmBlockThreshold(threshold string) error {
	if _, ok := validThresholds[threshold]; !ok {
		return fmt.Errorf("invalid harm block threshold %q", threshold)
	}
	return nil
}

// buildSafetySettings applies one threshold across all harm categories.
// Unknown thresholds fall back to the default rather than failing a request.
func buildSafetySettings(threshold string) []safetySetting {
	if _, ok := validThresholds[threshold]; !ok {
		threshold = DefaultHarmBlockThreshold
	}

	settings := make([]safetySetting, 0, len(harmCategories))
	for _, category := range harmCategories {
		settings = append(settings, safetySetting{Category: category, Threshold: threshold})
	}
	return settings
}
