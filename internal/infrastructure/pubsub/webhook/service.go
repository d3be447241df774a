package webhookpubsub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/golang-jwt/jwt"
	"github.com/sony/gobreaker"
	"github.com/timshannon/badgerhold/v4"
	"golang.org/x/sync/errgroup"

	"github.com/copays/copayd/internal/core/ports"
	"github.com/copays/copayd/pkg/circuitbreaker"
)

const deliveryTimeout = 15 * time.Second

type service struct {
	store      *badgerhold.Store
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewService opens (or creates if not existing) the webhook subscription db
// on disk and returns the webhook implementation of the pubsub contract.
func NewService(baseDbDir string, logger badger.Logger) (ports.PubSub, error) {
	opts := badger.DefaultOptions(filepath.Join(baseDbDir, "webhooks"))
	opts.Logger = logger
	store, err := badgerhold.Open(badgerhold.Options{
		Encoder: badgerhold.DefaultEncode,
		Decoder: badgerhold.DefaultDecode,
		Options: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("opening webhooks db: %w", err)
	}

	return &service{
		store:      store,
		httpClient: &http.Client{},
		cb:         circuitbreaker.NewCircuitBreaker(),
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	if err := ws.store.Insert(sub.ID, *sub); err != nil {
		if err == badgerhold.ErrKeyExists {
			return sub.ID, nil
		}
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	if err := ws.store.Delete(id, Subscription{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("webhook not found")
		}
		return err
	}
	return nil
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	return ws.listSubscriptionsForTopic(topic).toPortable()
}

func (ws *service) Publish(topic, message string) error {
	subs := ws.listSubscriptionsForTopic(topic)

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, message) })
	}
	return eg.Wait()
}

func (ws *service) Close() {
	ws.store.Close()
}

func (ws *service) listSubscriptionsForTopic(topic string) subscriptions {
	subs := ws.getSubscriptionsForTopic(topic)
	if topic != ports.AnyTopic {
		subsForAnyTopic := ws.getSubscriptionsForTopic(ports.AnyTopic)
		subs = append(subs, subsForAnyTopic...)
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs
}

func (ws *service) getSubscriptionsForTopic(topic string) subscriptions {
	var subs []Subscription
	query := badgerhold.Where("Event").Eq(topic).Index("Event")
	if err := ws.store.Find(&subs, query); err != nil {
		return nil
	}
	return subs
}

func (ws *service) doRequest(sub Subscription, payload string) error {
	_, err := ws.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, sub.Endpoint, strings.NewReader(payload),
		)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if sub.IsSecured() {
			token := jwt.New(jwt.SigningMethodHS256)
			tokenString, err := token.SignedString([]byte(sub.Secret))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tokenString))
		}

		resp, err := ws.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, errors.New(string(body))
		}
		return nil, nil
	})

	return err
}
