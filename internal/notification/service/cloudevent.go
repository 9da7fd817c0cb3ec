// Package service delivers notifications: it encodes them as CloudEvents for the outbox,
// fans them out to connected clients and emails them.
package service

import (
	"encoding/json"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/notification/domain"
)

// EventSource is the CloudEvents source attribute of every notification.
const EventSource = "esign/notifications"

// ErrInvalidCloudEvent indicates an outbox payload that is not a notification CloudEvent.
var ErrInvalidCloudEvent = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid notification cloud event")

// EncodeCloudEvent wraps event in a structured-mode CloudEvent. The subject is the recipient.
func EncodeCloudEvent(event domain.Event) ([]byte, error) {
	ce := cloudevents.NewEvent()
	ce.SetSpecVersion(cloudevents.VersionV1)
	ce.SetID(event.ID.String())
	ce.SetSource(EventSource)
	ce.SetType(string(event.Type))
	ce.SetSubject(event.UserID.String())
	ce.SetTime(event.OccurredAt)
	if err := ce.SetData(cloudevents.ApplicationJSON, event); err != nil {
		return nil, apperrors.Wrap(err, "failed to set cloud event data")
	}

	data, err := json.Marshal(ce)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal cloud event")
	}
	return data, nil
}

// DecodeCloudEvent parses a payload produced by EncodeCloudEvent.
func DecodeCloudEvent(data []byte) (domain.Event, error) {
	var ce cloudevents.Event
	if err := json.Unmarshal(data, &ce); err != nil {
		return domain.Event{}, apperrors.Wrap(ErrInvalidCloudEvent, err.Error())
	}
	if err := ce.Validate(); err != nil {
		return domain.Event{}, apperrors.Wrap(ErrInvalidCloudEvent, err.Error())
	}

	var event domain.Event
	if err := ce.DataAs(&event); err != nil {
		return domain.Event{}, apperrors.Wrap(ErrInvalidCloudEvent, err.Error())
	}
	if string(event.Type) != ce.Type() || event.UserID.String() != ce.Subject() {
		return domain.Event{}, apperrors.Wrap(ErrInvalidCloudEvent, "envelope does not match its data")
	}
	return event, nil
}
