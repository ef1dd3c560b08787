// Package notify is the fire-and-forget notification sink: polymorphic
// channels (email, SMS, push) behind one capability interface, with the
// channel-selection rule kept here and out of the messaging policy.
package notify

import (
	"context"
	"errors"
	"log"

	"matri-go/internal/config"
	"matri-go/internal/models"
	"matri-go/internal/storage"
)

// Payload is the channel-independent notification content.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier sends a payload to one target over one channel. Failures are
// reported to the caller, which logs and swallows them; a notification
// failure never fails the durable operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, target string, payload Payload) error
}

// ErrNoChannel is returned when a user has no usable delivery channel.
var ErrNoChannel = errors.New("user has no email or phone on record")

// emailNotifier delivers over email. Provider integration is pluggable;
// this implementation logs the would-be delivery.
type emailNotifier struct {
	from string
}

// NewEmailNotifier creates an email channel sender.
func NewEmailNotifier(cfg config.NotifyConfig) Notifier {
	return &emailNotifier{from: cfg.EmailFrom}
}

func (n *emailNotifier) Notify(ctx context.Context, target string, payload Payload) error {
	log.Printf("[notify/email] from=%s to=%s title=%q", n.from, target, payload.Title)
	return nil
}

// smsNotifier delivers over SMS, same pluggable-provider shape as email.
type smsNotifier struct {
	senderID string
}

// NewSMSNotifier creates an SMS channel sender.
func NewSMSNotifier(cfg config.NotifyConfig) Notifier {
	return &smsNotifier{senderID: cfg.SMSSenderID}
}

func (n *smsNotifier) Notify(ctx context.Context, target string, payload Payload) error {
	log.Printf("[notify/sms] sender=%s to=%s body=%q", n.senderID, target, payload.Body)
	return nil
}

// pushNotifier delivers to every device token the user has registered.
type pushNotifier struct {
	users storage.UserRepository
}

// NewPushNotifier creates a push channel sender backed by stored device tokens.
func NewPushNotifier(users storage.UserRepository) Notifier {
	return &pushNotifier{users: users}
}

func (n *pushNotifier) Notify(ctx context.Context, userID string, payload Payload) error {
	tokens, err := n.users.GetDeviceTokens(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil // dropped silently: no registered devices
	}
	for _, t := range tokens {
		log.Printf("[notify/push] user=%s platform=%s title=%q", userID, t.Platform, payload.Title)
	}
	return nil
}

// Dispatcher selects a delivery channel per user and forwards the payload.
type Dispatcher struct {
	email Notifier
	sms   Notifier
	push  Notifier
}

// NewDispatcher creates a Dispatcher over the three channel senders.
func NewDispatcher(email, sms, push Notifier) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, push: push}
}

// ChannelTarget picks the out-of-band channel for a user: email when they
// have an email address and no phone, SMS whenever a phone is on record.
func (d *Dispatcher) ChannelTarget(user *models.User) (Notifier, string, error) {
	switch {
	case user.Phone != nil && *user.Phone != "":
		return d.sms, *user.Phone, nil
	case user.Email != nil && *user.Email != "":
		return d.email, *user.Email, nil
	default:
		return nil, "", ErrNoChannel
	}
}

// NotifyUser sends an out-of-band notification over the user's channel.
func (d *Dispatcher) NotifyUser(ctx context.Context, user *models.User, payload Payload) error {
	notifier, target, err := d.ChannelTarget(user)
	if err != nil {
		return err
	}
	return notifier.Notify(ctx, target, payload)
}

// NotifyPush sends a push notification to the user's registered devices.
func (d *Dispatcher) NotifyPush(ctx context.Context, userID string, payload Payload) error {
	return d.push.Notify(ctx, userID, payload)
}
