package whatsapp

import (
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

// WebhookPayload is the body Meta posts to the messages webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string          `json:"messaging_product"`
	Metadata         ValueMetadata   `json:"metadata"`
	Contacts         []Contact       `json:"contacts"`
	Messages         []Message       `json:"messages"`
	Statuses         []MessageStatus `json:"statuses"`
}

type ValueMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type Message struct {
	ID          string              `json:"id"`
	From        string              `json:"from"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *TextBody           `json:"text,omitempty"`
	Interactive *InteractiveReply   `json:"interactive,omitempty"`
	Button      *TemplateButtonBody `json:"button,omitempty"`
	Image       *MediaBody          `json:"image,omitempty"`
	Location    *LocationBody       `json:"location,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

type InteractiveReply struct {
	Type        string     `json:"type"`
	ButtonReply *ReplyPick `json:"button_reply,omitempty"`
	ListReply   *ReplyPick `json:"list_reply,omitempty"`
}

type ReplyPick struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type TemplateButtonBody struct {
	Payload string `json:"payload"`
	Text    string `json:"text"`
}

type MediaBody struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
}

type LocationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
}

// MessageStatus is a delivery receipt for an outbound message.
type MessageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// InboundEvent is one normalized customer message.
type InboundEvent struct {
	MessageID   string
	From        string
	ProfileName string
	ReceivedAt  time.Time
	Metadata    Metadata
	Kind        enums.InboundKind
	Text        string
	ReplyID     string
	ReplyTitle  string
	ImageID     string
	Caption     string
	Latitude    float64
	Longitude   float64
	PlaceName   string
	PlaceAddr   string
	RawType     string
}

// Summary renders the event as a single line for archiving.
func (e InboundEvent) Summary() string {
	switch e.Kind {
	case enums.InboundKindText:
		return e.Text
	case enums.InboundKindButton, enums.InboundKindList:
		if e.ReplyTitle != "" {
			return e.ReplyID + " (" + e.ReplyTitle + ")"
		}
		return e.ReplyID
	case enums.InboundKindImage:
		if e.Caption != "" {
			return "[image] " + e.Caption
		}
		return "[image]"
	case enums.InboundKindLocation:
		return "[location] " + strconv.FormatFloat(e.Latitude, 'f', 6, 64) + "," + strconv.FormatFloat(e.Longitude, 'f', 6, 64)
	}
	return "[" + e.RawType + "]"
}

// Events flattens every message in the payload into inbound events.
func (p WebhookPayload) Events() []InboundEvent {
	var out []InboundEvent
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			names := map[string]string{}
			for _, contact := range change.Value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			meta := Metadata{PhoneNumberID: change.Value.Metadata.PhoneNumberID}
			for _, msg := range change.Value.Messages {
				ev := normalize(msg)
				ev.Metadata = meta
				ev.ProfileName = names[msg.From]
				out = append(out, ev)
			}
		}
	}
	return out
}

// Statuses flattens every delivery receipt in the payload.
func (p WebhookPayload) Statuses() []MessageStatus {
	var out []MessageStatus
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			out = append(out, change.Value.Statuses...)
		}
	}
	return out
}

func normalize(msg Message) InboundEvent {
	ev := InboundEvent{
		MessageID:  msg.ID,
		From:       msg.From,
		ReceivedAt: parseUnix(msg.Timestamp),
		Kind:       enums.InboundKindUnsupported,
		RawType:    msg.Type,
	}
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			ev.Kind = enums.InboundKindText
			ev.Text = msg.Text.Body
		}
	case "interactive":
		if msg.Interactive == nil {
			break
		}
		switch {
		case msg.Interactive.ButtonReply != nil:
			ev.Kind = enums.InboundKindButton
			ev.ReplyID = msg.Interactive.ButtonReply.ID
			ev.ReplyTitle = msg.Interactive.ButtonReply.Title
		case msg.Interactive.ListReply != nil:
			ev.Kind = enums.InboundKindList
			ev.ReplyID = msg.Interactive.ListReply.ID
			ev.ReplyTitle = msg.Interactive.ListReply.Title
		}
	case "button":
		if msg.Button != nil {
			ev.Kind = enums.InboundKindButton
			ev.ReplyID = msg.Button.Payload
			ev.ReplyTitle = msg.Button.Text
		}
	case "image":
		if msg.Image != nil {
			ev.Kind = enums.InboundKindImage
			ev.ImageID = msg.Image.ID
			ev.Caption = msg.Image.Caption
		}
	case "location":
		if msg.Location != nil {
			ev.Kind = enums.InboundKindLocation
			ev.Latitude = msg.Location.Latitude
			ev.Longitude = msg.Location.Longitude
			ev.PlaceName = msg.Location.Name
			ev.PlaceAddr = msg.Location.Address
		}
	}
	return ev
}

func parseUnix(raw string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
