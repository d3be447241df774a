package webhookpubsub

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/copays/copayd/internal/core/ports"
)

// Subscription is a webhook registered for a notification topic. A non-empty
// secret makes the delivery request carry a signed bearer token.
type Subscription struct {
	ID       string `badgerhold:"key"`
	Event    string `badgerholdIndex:"Event"`
	Endpoint string
	Secret   string
}

type subscriptions []Subscription

func (s subscriptions) toPortable() []ports.Subscription {
	subs := make([]ports.Subscription, 0, len(s))
	for i := range s {
		sub := s[i]
		subs = append(subs, &sub)
	}
	return subs
}

func NewSubscription(event, endpoint, secret string) (*Subscription, error) {
	if len(event) <= 0 {
		return nil, fmt.Errorf("missing event")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint, must be a valid URI")
	}
	id := uuid.New().String()
	return &Subscription{id, event, endpoint, secret}, nil
}

func (s *Subscription) Id() string {
	return s.ID
}

func (s *Subscription) Topic() string {
	return s.Event
}

func (s *Subscription) NotifyAt() string {
	return s.Endpoint
}

func (s *Subscription) IsSecured() bool {
	return len(s.Secret) > 0
}
