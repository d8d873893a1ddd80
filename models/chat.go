package models

// ActivateResponse is returned by POST /chatbot/activate when ingestion ran
// synchronously.
type ActivateResponse struct {
	OK       bool   `json:"ok"`
	Nickname string `json:"nickname"`
	Chunks   int    `json:"chunks"`
	Message  string `json:"message"`
}

// ActivateQueuedResponse is returned with 202 when the content was large
// enough to hand to the background worker.
type ActivateQueuedResponse struct {
	OK       bool   `json:"ok"`
	Nickname string `json:"nickname"`
	Queued   bool   `json:"queued"`
	Message  string `json:"message"`
}

type DeactivateRequest struct {
	Nickname string `json:"nickname" binding:"required,min=3,max=50"`
}

type DeactivateResponse struct {
	OK       bool   `json:"ok"`
	Nickname string `json:"nickname"`
	Deleted  string `json:"deleted"`
}

// QuotaUpdateRequest sets a page's daily answer-token budget.
type QuotaUpdateRequest struct {
	Nickname   string `json:"nickname" binding:"required,min=3,max=50"`
	DailyLimit int    `json:"daily_limit" binding:"required,min=1000,max=1000000"`
}

type ChatRequest struct {
	Nickname string `json:"nickname" binding:"required,min=3,max=50"`
	// No upper bound here: over-long questions are truncated to the input
	// token budget before retrieval, not rejected.
	Question string `json:"question" binding:"required,min=1"`
}

type ChatResponse struct {
	Answer  string       `json:"answer"`
	Sources []ChatSource `json:"sources"`
	Tokens  TokenUsage   `json:"tokens"`
}

// ChatSource identifies a retrieved chunk that grounded the answer.
type ChatSource struct {
	Index int `json:"index"`
}

type TokenUsage struct {
	Prompt int `json:"prompt"`
	Output int `json:"output"`
}
