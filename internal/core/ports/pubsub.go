package ports

// AnyTopic subscribes to every published topic.
const AnyTopic = "*"

// Subscription is the info of a client subscribed for a topic.
type Subscription interface {
	Id() string
	Topic() string
	NotifyAt() string
	IsSecured() bool
}

// PubSub is the at-least-once publish/subscribe channel decoupling the engine
// from notification delivery. The engine only publishes, it never consumes
// its own events.
type PubSub interface {
	// Subscribe adds a new subscription for the requested topic.
	Subscribe(topic, endpoint, secret string) (string, error)
	// Unsubscribe removes the subscription with the given id.
	Unsubscribe(topic, id string) error
	// ListSubscriptionsForTopic returns the subscriptions for a topic.
	ListSubscriptionsForTopic(topic string) []Subscription
	// Publish delivers a message to every client subscribed for the topic.
	Publish(topic, message string) error
	// Close releases any resource held by the implementation.
	Close()
}
