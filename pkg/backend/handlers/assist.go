package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/vertex-home/assist-bridge/pkg/assist"
)

// maxAudioUpload caps audio request bodies at 20 MB.
const maxAudioUpload = 20 << 20

// AssistHandler serves the conversation, TTS, STT and task endpoints.
// Services that were not configured are nil and their endpoints answer
// 503.
type AssistHandler struct {
	conversation *assist.Conversation
	tts          *assist.TTS
	stt          *assist.STT
	task         *assist.Task
}

// NewAssistHandler creates the handler over the configured services.
func NewAssistHandler(conversation *assist.Conversation, tts *assist.TTS, stt *assist.STT, task *assist.Task) *AssistHandler {
	return &AssistHandler{
		conversation: conversation,
		tts:          tts,
		stt:          stt,
		task:         task,
	}
}

// Converse handles POST /api/converse.
func (h *AssistHandler) Converse(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if h.conversation == nil {
		SendError(w, r, "NOT_CONFIGURED", "Conversation is not configured", http.StatusServiceUnavailable)
		return
	}

	var req assist.ConverseRequest
	if err := ParseJSON(r, &req); err != nil {
		SendError(w, r, "INVALID_REQUEST", "Invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.conversation.Converse(r.Context(), &req)
	if err != nil {
		SendError(w, r, "INVALID_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}
	SendSuccess(w, r, result)
}

// TTS handles POST /api/tts. The response body is the WAV file itself.
func (h *AssistHandler) TTS(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if h.tts == nil {
		SendError(w, r, "NOT_CONFIGURED", "Speech synthesis is not configured", http.StatusServiceUnavailable)
		return
	}

	var req assist.TTSRequest
	if err := ParseJSON(r, &req); err != nil {
		SendError(w, r, "INVALID_REQUEST", "Invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.tts.Synthesize(r.Context(), &req)
	if err != nil {
		SendError(w, r, "SYNTHESIS_FAILED", err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Audio)
}

// STT handles POST /api/stt. The request body is the raw audio; format
// and language ride in query parameters.
func (h *AssistHandler) STT(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if h.stt == nil {
		SendError(w, r, "NOT_CONFIGURED", "Transcription is not configured", http.StatusServiceUnavailable)
		return
	}

	// Read one byte past the cap to tell oversize apart from exactly-at-cap
	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioUpload+1))
	if err != nil {
		SendError(w, r, "INVALID_REQUEST", "Failed to read audio body", http.StatusBadRequest)
		return
	}
	if len(audio) > maxAudioUpload {
		SendError(w, r, "PAYLOAD_TOO_LARGE", "Audio exceeds the 20 MB upload limit", http.StatusRequestEntityTooLarge)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "wav"
	}

	result, err := h.stt.Transcribe(r.Context(), &assist.STTRequest{
		Audio:    audio,
		Format:   format,
		Language: r.URL.Query().Get("language"),
	})
	if err != nil {
		SendError(w, r, "TRANSCRIPTION_FAILED", err.Error(), http.StatusBadGateway)
		return
	}
	SendSuccess(w, r, result)
}

// Task handles POST /api/task.
func (h *AssistHandler) Task(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if h.task == nil {
		SendError(w, r, "NOT_CONFIGURED", "AI tasks are not configured", http.StatusServiceUnavailable)
		return
	}

	var req assist.TaskRequest
	if err := ParseJSON(r, &req); err != nil {
		SendError(w, r, "INVALID_REQUEST", "Invalid JSON body", http.StatusBadRequest)
		return
	}

	result, err := h.task.Run(r.Context(), &req)
	if err != nil {
		SendError(w, r, "TASK_FAILED", err.Error(), http.StatusBadGateway)
		return
	}
	SendSuccess(w, r, result)
}

// Tools handles GET /api/tools, listing the loaded custom tools.
func (h *AssistHandler) Tools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		SendError(w, r, "METHOD_NOT_ALLOWED", "Only GET is allowed", http.StatusMethodNotAllowed)
		return
	}

	type toolInfo struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description"`
		Parameters  map[string]interface{} `json:"parameters"`
		Steps       int                    `json:"steps"`
	}

	tools := []toolInfo{}
	if h.conversation != nil {
		for _, tool := range h.conversation.Tools() {
			tools = append(tools, toolInfo{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
				Steps:       len(tool.Sequence),
			})
		}
	}
	SendSuccess(w, r, map[string]interface{}{"tools": tools, "count": len(tools)})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		SendError(w, r, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed, use POST", r.Method),
			http.StatusMethodNotAllowed)
		return false
	}
	return true
}
