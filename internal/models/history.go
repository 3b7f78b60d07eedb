package models

// ConversationHistory is the single-conversation history view
type ConversationHistory struct {
	ConversationID    string            `json:"conversationId"`
	ConversationTitle string            `json:"conversationTitle"`
	Messages          []MessageResponse `json:"messages"`
	Pagination        Pagination        `json:"pagination"`
}

// HistoryFilters echoes the filters applied to an index query. Search and
// FilterDate are null when absent.
type HistoryFilters struct {
	Search     *string `json:"search"`
	SortBy     string  `json:"sortBy"`
	FilterDate *string `json:"filterDate"`
}

// ConversationIndex is the cross-conversation history view
type ConversationIndex struct {
	Conversations []ConversationDetail `json:"conversations"`
	Pagination    Pagination           `json:"pagination"`
	Filters       HistoryFilters       `json:"filters"`
}
