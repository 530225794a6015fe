package models

// Health is the payload of GET /health.
type Health struct {
	Status    string         `json:"status"`
	GroqAPI   string         `json:"groq_api"`
	Database  string         `json:"database"`
	ModelInfo map[string]any `json:"model_info,omitempty"`
}

// Healthy reports whether the API and its dependencies are up.
func (h Health) Healthy() bool {
	return h.Status == "healthy"
}

// Activity is one entry of SystemStats.RecentActivity.
type Activity struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// SystemStats is the payload of GET /system-stats.
type SystemStats struct {
	TotalStructuredDocuments int        `json:"total_structured_documents"`
	TotalChats               int        `json:"total_chats"`
	RecentActivity           []Activity `json:"recent_activity"`
}
