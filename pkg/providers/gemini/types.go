// Package gemini provides the Google Gemini provider for Vertex AI.
// It speaks the generateContent REST API, including structured output,
// function calling, speech synthesis (audio response modality) and audio
// transcription, and authenticates with GCP OAuth2 tokens.
package gemini

// generateContentRequest is the Vertex AI generateContent payload.
type generateContentRequest struct {
	Contents          []wireContent     `json:"contents"`
	SystemInstruction *wireContent      `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []safetySetting   `json:"safetySettings,omitempty"`
	Tools             []wireToolSet     `json:"tools,omitempty"`
	ToolConfig        *toolConfig       `json:"toolConfig,omitempty"`
}

// wireContent is a role-tagged list of parts.
type wireContent struct {
	Role  string     `json:"role,omitempty"` // "user" or "model"
	Parts []wirePart `json:"parts"`
}

// wirePart is a single content part. Exactly one field is set.
type wirePart struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *inlineData       `json:"inlineData,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

// inlineData carries base64-encoded media.
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// functionCall is the model requesting a tool invocation.
type functionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// functionResponse answers a functionCall.
type functionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

// generationConfig carries sampling and output options.
type generationConfig struct {
	Temperature        *float64               `json:"temperature,omitempty"`
	TopP               *float64               `json:"topP,omitempty"`
	TopK               *int                   `json:"topK,omitempty"`
	MaxOutputTokens    int                    `json:"maxOutputTokens,omitempty"`
	ResponseMimeType   string                 `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]interface{} `json:"responseSchema,omitempty"`
	ResponseModalities []string               `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig          `json:"speechConfig,omitempty"`
}

// speechConfig selects the synthesis voice.
type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// safetySetting binds a harm category to a block threshold.
type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// wireToolSet wraps function declarations; Gemini groups tools per set.
type wireToolSet struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// toolConfig controls function calling mode.
type toolConfig struct {
	FunctionCallingConfig functionCallingConfig `json:"functionCallingConfig"`
}

type functionCallingConfig struct {
	Mode                 string   `json:"mode"` // "AUTO", "ANY", "NONE"
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

// generateContentResponse is the Vertex AI generateContent response.
type generateContentResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
}

type candidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// googleErrorResponse is the Google Cloud error envelope.
type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
