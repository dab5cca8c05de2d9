package api

// Session service.

type GetStatusRequest struct{}

type Counts struct {
	Contacts int64 `json:"contacts"`
	Chats    int64 `json:"chats"`
	Messages int64 `json:"messages"`
}

type GetStatusResponse struct {
	Session          string `json:"session"`
	Status           string `json:"status"`
	Error            string `json:"error,omitempty"`
	PairingChallenge string `json:"pairingChallenge,omitempty"`
	SyncInProgress   bool   `json:"syncInProgress"`
	LastSync         string `json:"lastSync,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Counts           Counts `json:"counts"`
	UptimeMs         int64  `json:"uptimeMs"`
}

type StartRequest struct{}

type StartResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type LogoutRequest struct{}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Message service.

type SendTextRequest struct {
	JID   string `json:"jid,omitempty"`
	Phone string `json:"phone,omitempty"`
	Text  string `json:"text"`
}

type SendTextResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	To        string `json:"to,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TimeRangeToday lists messages from the last 24 hours.
const TimeRangeToday = "today"

// OrderOldest lists messages oldest first.
const OrderOldest = "oldest"

// ListMessagesRequest selects one listing mode. Precedence: Search, ChatJID,
// TimeRange, then the most recent messages overall.
type ListMessagesRequest struct {
	ChatJID    string `json:"chatJid,omitempty"`
	Search     string `json:"search,omitempty"`
	TimeRange  string `json:"timeRange,omitempty"`
	Order      string `json:"order,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	IncludeRaw bool   `json:"includeRaw,omitempty"`
}

type Message struct {
	ID          string `json:"id"`
	ChatJID     string `json:"chatJid"`
	ChatName    string `json:"chatName,omitempty"`
	SenderJID   string `json:"senderJid"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
	IsFromMe    bool   `json:"isFromMe"`
	Timestamp   int64  `json:"timestamp"`
	RawData     string `json:"rawData,omitempty"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
	HasMore  bool      `json:"hasMore"`
	// Total is the chat's message count; set only when listing one chat.
	Total int64 `json:"total,omitempty"`
}

// Contact service.

type ListContactsRequest struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type Contact struct {
	JID         string `json:"jid"`
	Name        string `json:"name,omitempty"`
	Notify      string `json:"notify,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DisplayName string `json:"displayName"`
}

type ListContactsResponse struct {
	Contacts []Contact `json:"contacts"`
	Count    int       `json:"count"`
	HasMore  bool      `json:"hasMore"`
}

// Chat service.

type ListChatsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type Chat struct {
	JID           string `json:"jid"`
	Name          string `json:"name,omitempty"`
	IsGroup       bool   `json:"isGroup"`
	UnreadCount   int    `json:"unreadCount"`
	LastMessageAt int64  `json:"lastMessageAt,omitempty"`
}

type ListChatsResponse struct {
	Chats   []Chat `json:"chats"`
	Total   int64  `json:"total"`
	HasMore bool   `json:"hasMore"`
}

type GetChatRequest struct {
	JID string `json:"jid"`
}

type GetChatResponse struct {
	Chat         Chat  `json:"chat"`
	MessageCount int64 `json:"messageCount"`
}
