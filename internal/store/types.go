package store

// Contact is a person or business seen on the network.
// Empty string fields mean "unknown" and never overwrite a stored value.
type Contact struct {
	JID       string
	Name      string // operator's own address-book label
	Notify    string // self-reported push name
	Phone     string
	UpdatedAt int64
}

// DisplayName returns the best available label for the contact.
func (c Contact) DisplayName() string {
	switch {
	case c.Notify != "":
		return c.Notify
	case c.Name != "":
		return c.Name
	default:
		return c.Phone
	}
}

// Chat is an authoritative chat record, as delivered by explicit chat events
// or history sync. Zero values mean "keep what is stored".
type Chat struct {
	JID           string
	Name          string
	UnreadCount   *int
	LastMessageAt int64
}

// ChatTouch is the chat side effect of ingesting a message.
type ChatTouch struct {
	JID           string
	NameFallback  string
	LastMessageAt int64
}

// ChatRow is a chat as read back from the store.
type ChatRow struct {
	JID           string
	Name          string
	IsGroup       bool
	UnreadCount   int
	LastMessageAt int64
}

// Message is a stored message. ID is its sole identity.
type Message struct {
	ID          string
	ChatJID     string
	SenderJID   string
	Content     string
	MessageType string
	IsFromMe    bool
	Timestamp   int64
	RawData     string
}

// MessageRow is a message joined with its chat name.
type MessageRow struct {
	Message
	ChatName string
}

// MessageOrder selects the ordering of a message listing.
type MessageOrder int

const (
	NewestFirst MessageOrder = iota
	OldestFirst
)

// MessageQuery filters a message listing. Empty fields do not filter.
type MessageQuery struct {
	ChatJID string
	Search  string
	Since   int64
	Order   MessageOrder
	Limit   int
	Offset  int
}

// Counts summarizes the number of stored records.
type Counts struct {
	Contacts int64
	Chats    int64
	Messages int64
}
