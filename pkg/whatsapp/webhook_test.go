package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kwetupizza-backend/pkg/enums"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "biz",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "255600000000", "phone_number_id": "pnid-9"},
        "contacts": [{"wa_id": "255700000001", "profile": {"name": "Asha"}}],
        "messages": [
          {"id": "m1", "from": "255700000001", "timestamp": "1700000000", "type": "text", "text": {"body": " Hi "}},
          {"id": "m2", "from": "255700000001", "timestamp": "1700000001", "type": "interactive", "interactive": {"type": "button_reply", "button_reply": {"id": "cart_checkout", "title": "Checkout"}}},
          {"id": "m3", "from": "255700000001", "timestamp": "1700000002", "type": "interactive", "interactive": {"type": "list_reply", "list_reply": {"id": "pizza_3", "title": "Margherita"}}},
          {"id": "m4", "from": "255700000001", "timestamp": "1700000003", "type": "image", "image": {"id": "img", "caption": "3"}},
          {"id": "m5", "from": "255700000001", "timestamp": "1700000004", "type": "location", "location": {"latitude": -6.8, "longitude": 39.28, "name": "Home", "address": "Msasani"}},
          {"id": "m6", "from": "255700000001", "timestamp": "1700000005", "type": "sticker"}
        ],
        "statuses": [{"id": "wamid.1", "status": "delivered", "timestamp": "1700000006", "recipient_id": "255700000001"}]
      }
    }]
  }]
}`

func TestWebhookPayloadEvents(t *testing.T) {
	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(samplePayload), &payload))

	events := payload.Events()
	require.Len(t, events, 6)

	for _, ev := range events {
		require.Equal(t, "pnid-9", ev.Metadata.PhoneNumberID)
		require.Equal(t, "Asha", ev.ProfileName)
	}

	require.Equal(t, enums.InboundKindText, events[0].Kind)
	require.Equal(t, " Hi ", events[0].Text)
	require.Equal(t, int64(1700000000), events[0].ReceivedAt.Unix())

	require.Equal(t, enums.InboundKindButton, events[1].Kind)
	require.Equal(t, "cart_checkout", events[1].ReplyID)

	require.Equal(t, enums.InboundKindList, events[2].Kind)
	require.Equal(t, "pizza_3", events[2].ReplyID)

	require.Equal(t, enums.InboundKindImage, events[3].Kind)
	require.Equal(t, "3", events[3].Caption)

	require.Equal(t, enums.InboundKindLocation, events[4].Kind)
	require.Equal(t, "Msasani", events[4].PlaceAddr)

	require.Equal(t, enums.InboundKindUnsupported, events[5].Kind)
	require.Equal(t, "[sticker]", events[5].Summary())

	statuses := payload.Statuses()
	require.Len(t, statuses, 1)
	require.Equal(t, "delivered", statuses[0].Status)
}
