// Package push delivers silent update notifications to registered devices,
// either straight to APNs or through a RabbitMQ work queue.
package push

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sirupsen/logrus"

	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	"github.com/vbncursed/vkr/pass-service/internal/logger"
)

// CredentialSource resolves the APNs client identity of a pass type.
type CredentialSource interface {
	Load(passTypeID string) (*crypto.Credentials, error)
}

type pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNsNotifier sends an empty content-available push per device token. The
// topic is the pass type identifier and selects the client certificate.
type APNsNotifier struct {
	credentials CredentialSource
	production  bool

	mu        sync.Mutex
	clients   map[string]pusher
	newClient func(c *crypto.Credentials, production bool) pusher
}

func NewAPNsNotifier(credentials CredentialSource, production bool) *APNsNotifier {
	return &APNsNotifier{
		credentials: credentials,
		production:  production,
		clients:     make(map[string]pusher),
		newClient:   newAPNsClient,
	}
}

func newAPNsClient(c *crypto.Credentials, production bool) pusher {
	client := apns2.NewClient(c.TLSCertificate())
	if production {
		return client.Production()
	}
	return client.Development()
}

func (n *APNsNotifier) client(topic string) (pusher, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.clients[topic]; ok {
		return c, nil
	}
	creds, err := n.credentials.Load(topic)
	if err != nil {
		return nil, fmt.Errorf("apns credentials %s: %w", topic, err)
	}
	c := n.newClient(creds, n.production)
	n.clients[topic] = c
	return c, nil
}

// Notify pushes to every token and returns the combined failures.
func (n *APNsNotifier) Notify(ctx context.Context, topic string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	c, err := n.client(topic)
	if err != nil {
		return err
	}
	log := logger.GetLogger(ctx).WithField("topic", topic)

	var result *multierror.Error
	sent := 0
	for _, token := range tokens {
		res, err := c.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: token,
			Topic:       topic,
			Payload:     payload.NewPayload().ContentAvailable(),
			PushType:    apns2.PushTypeBackground,
			Priority:    apns2.PriorityLow,
		})
		switch {
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("token %s: %w", token, err))
		case !res.Sent():
			result = multierror.Append(result, fmt.Errorf("token %s: %d %s", token, res.StatusCode, res.Reason))
		default:
			sent++
		}
	}
	log.WithFields(logrus.Fields{"sent": sent, "failed": len(tokens) - sent}).Debug("apns push complete")
	return result.ErrorOrNil()
}
