package models

// OutboundMessageRequest is a manual WhatsApp message, e.g. a shift reminder
// sent by the office to a guard.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// AutomationReply is a canned answer to a supervisor command.
type AutomationReply struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
