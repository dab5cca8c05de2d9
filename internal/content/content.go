// Package content maps inbound protocol messages onto a closed set of payload
// variants and derives the display text and type tag stored for each message.
package content

import "go.mau.fi/whatsmeow/proto/waE2E"

// Type is the classification tag stored alongside each message.
type Type string

const (
	TypeText     Type = "text"
	TypeImage    Type = "image"
	TypeVideo    Type = "video"
	TypeAudio    Type = "audio"
	TypeDocument Type = "document"
	TypeSticker  Type = "sticker"
	TypeContact  Type = "contact"
	TypeLocation Type = "location"
	TypeReaction Type = "reaction"
	TypeProtocol Type = "protocol"
	TypeUnknown  Type = "unknown"
)

// Payload is one variant of a decoded message body. The set of variants is
// closed: only types in this package implement it.
type Payload interface {
	payload()
}

type (
	Text        struct{ Body string }
	Image       struct{ Caption string }
	Video       struct{ Caption string }
	Audio       struct{}
	Document    struct{ FileName string }
	Sticker     struct{}
	ContactCard struct{ DisplayName string }
	Location    struct{}
	Reaction    struct{ Emoji string }
	Protocol    struct{}
	Unknown     struct{}
)

func (Text) payload()        {}
func (Image) payload()       {}
func (Video) payload()       {}
func (Audio) payload()       {}
func (Document) payload()    {}
func (Sticker) payload()     {}
func (ContactCard) payload() {}
func (Location) payload()    {}
func (Reaction) payload()    {}
func (Protocol) payload()    {}
func (Unknown) payload()     {}

// maxUnwrap bounds how many wrapper layers Decode peels off.
const maxUnwrap = 4

// Decode picks the payload variant carried by msg. Ephemeral, view-once and
// document-with-caption wrappers are unwrapped first. A nil message decodes
// to Unknown.
func Decode(msg *waE2E.Message) Payload {
	msg = unwrap(msg)
	if msg == nil {
		return Unknown{}
	}

	switch {
	case msg.GetConversation() != "":
		return Text{Body: msg.GetConversation()}
	case msg.GetExtendedTextMessage() != nil:
		return Text{Body: msg.GetExtendedTextMessage().GetText()}
	case msg.GetImageMessage() != nil:
		return Image{Caption: msg.GetImageMessage().GetCaption()}
	case msg.GetVideoMessage() != nil:
		return Video{Caption: msg.GetVideoMessage().GetCaption()}
	case msg.GetAudioMessage() != nil:
		return Audio{}
	case msg.GetDocumentMessage() != nil:
		return Document{FileName: msg.GetDocumentMessage().GetFileName()}
	case msg.GetStickerMessage() != nil:
		return Sticker{}
	case msg.GetContactMessage() != nil:
		return ContactCard{DisplayName: msg.GetContactMessage().GetDisplayName()}
	case msg.GetLocationMessage() != nil, msg.GetLiveLocationMessage() != nil:
		return Location{}
	case msg.GetReactionMessage() != nil:
		return Reaction{Emoji: msg.GetReactionMessage().GetText()}
	case msg.GetProtocolMessage() != nil, msg.GetSenderKeyDistributionMessage() != nil:
		return Protocol{}
	default:
		return Unknown{}
	}
}

func unwrap(msg *waE2E.Message) *waE2E.Message {
	for range maxUnwrap {
		var inner *waE2E.Message
		switch {
		case msg.GetEphemeralMessage() != nil:
			inner = msg.GetEphemeralMessage().GetMessage()
		case msg.GetViewOnceMessage() != nil:
			inner = msg.GetViewOnceMessage().GetMessage()
		case msg.GetViewOnceMessageV2() != nil:
			inner = msg.GetViewOnceMessageV2().GetMessage()
		case msg.GetDocumentWithCaptionMessage() != nil:
			inner = msg.GetDocumentWithCaptionMessage().GetMessage()
		default:
			return msg
		}
		if inner == nil {
			return msg
		}
		msg = inner
	}
	return msg
}

// Classify returns the display text and type tag for a payload.
func Classify(p Payload) (string, Type) {
	switch v := p.(type) {
	case Text:
		return v.Body, TypeText
	case Image:
		return withDetail("[Image]", v.Caption), TypeImage
	case Video:
		return withDetail("[Video]", v.Caption), TypeVideo
	case Audio:
		return "[Audio]", TypeAudio
	case Document:
		return withDetail("[Document]", v.FileName), TypeDocument
	case Sticker:
		return "[Sticker]", TypeSticker
	case ContactCard:
		return withDetail("[Contact]", v.DisplayName), TypeContact
	case Location:
		return "[Location]", TypeLocation
	case Reaction:
		return withDetail("[Reaction]", v.Emoji), TypeReaction
	case Protocol:
		return "", TypeProtocol
	default:
		return "[Unknown message type]", TypeUnknown
	}
}

// Describe is Classify(Decode(msg)).
func Describe(msg *waE2E.Message) (string, Type) {
	return Classify(Decode(msg))
}

func withDetail(label, detail string) string {
	if detail == "" {
		return label
	}
	return label + " " + detail
}
