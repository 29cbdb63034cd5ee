// README: Firebase Cloud Messaging sink; maps events to rider/driver topics.
package notify

import (
	"context"

	"firebase.google.com/go/v4/messaging"
)

const RidersTopic = "riders"

type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMSink struct {
	client fcmSender
}

func NewFCMSink(client *messaging.Client) *FCMSink {
	return &FCMSink{client: client}
}

func (f *FCMSink) Name() string { return "fcm" }

func (f *FCMSink) Deliver(ctx context.Context, e Event) error {
	msg := fcmMessage(e)
	if msg == nil {
		return nil
	}
	_, err := f.client.Send(ctx, msg)
	return err
}

// DriverTopic and RiderTopic are the per-user topics the mobile app subscribes to.
func DriverTopic(id string) string { return "driver_" + id }
func RiderTopic(id string) string  { return "rider_" + id }

func fcmMessage(e Event) *messaging.Message {
	data := map[string]string{
		"type":     string(e.Type),
		"route_id": string(e.RouteID),
	}
	if e.RequestID != "" {
		data["request_id"] = string(e.RequestID)
	}
	if e.BroadcastID != "" {
		data["broadcast_id"] = string(e.BroadcastID)
	}
	if e.Reason != "" {
		data["reason"] = e.Reason
	}

	var topic, title, body string
	switch e.Type {
	case BroadcastCreated:
		topic, title, body = RidersTopic, "Driver leaving now", "A driver on your campus is departing. Request a seat before it fills up."
	case RoutePublished:
		topic, title, body = RidersTopic, "New ride available", "A driver has published a new route."
	case RouteCancelled:
		topic, title, body = RidersTopic, "Ride cancelled", "A driver has cancelled their route."
	case RequestCreated:
		topic, title, body = DriverTopic(string(e.DriverID)), "New ride request", "A rider wants to join your route."
	case RequestAccepted:
		topic, title, body = RiderTopic(string(e.RiderID)), "Ride confirmed", "Your pickup request was accepted."
	case RequestRejected:
		topic, title, body = RiderTopic(string(e.RiderID)), "Ride request declined", rejectionText(e.Reason)
	default:
		return nil
	}
	return &messaging.Message{
		Topic:        topic,
		Data:         data,
		Notification: &messaging.Notification{Title: title, Body: body},
	}
}

func rejectionText(reason string) string {
	switch reason {
	case "capacity_exhausted":
		return "The route filled up before your request was accepted."
	case "route_cancelled":
		return "The driver cancelled this route."
	default:
		return "The driver declined your pickup request."
	}
}
