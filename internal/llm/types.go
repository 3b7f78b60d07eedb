package llm

// Gemini wire roles. Assistant turns are sent upstream as "model".
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one piece of content in a turn
type Part struct {
	Text string `json:"text"`
}

// Content is a single turn forwarded to the model
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// GenerationConfig holds the fixed sampling parameters for a completion
type GenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
}

// generateRequest is the streamGenerateContent request body
type generateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// streamChunk is one SSE payload of a streaming completion
type streamChunk struct {
	Candidates []struct {
		Content struct {
			Role  string `json:"role"`
			Parts []Part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// apiErrorBody is the error envelope returned on non-200 responses
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
