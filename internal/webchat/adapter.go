package webchat

import (
	"time"

	"github.com/wolfman30/clinic-appointment-bot/internal/conversation"
)

// outbound renders a conversation reply for the widget.
func outbound(reply conversation.Reply) OutboundMessage {
	msg := OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      reply.Text(),
		State:     reply.State.String(),
		Kind:      string(reply.Kind),
		Options:   reply.Options,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if reply.Kind == conversation.ReplyBooked && reply.Booking != nil {
		msg.BookingID = reply.Booking.ID
	}
	return msg
}

func historyMessages(msgs []conversation.TranscriptMessage) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{
			Role:      m.Role,
			Text:      m.Body,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return out
}
