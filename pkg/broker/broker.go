// Package broker handles the STOMP connection to the APRS-IS feed: the
// firehose subscription, per-frame acks, and the downstream publish topics.
// A broken connection is retried every ReconnectWait, rotating through the
// configured host list.
package broker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gmallard/stompngo"

	"github.com/openaprs/aprsinject/internal/logger"
)

// Downstream destinations.
const (
	TopicErrors     = "/topic/feeds.aprs.is.errors"
	TopicRejects    = "/topic/feeds.aprs.is.rejects"
	TopicDuplicates = "/topic/feeds.aprs.is.duplicates"
	TopicMessages   = "/topic/notify.aprs.messages"
)

// Config holds the STOMP connection settings.
type Config struct {
	// Hosts is the broker host:port list; reconnects rotate through it.
	Hosts []string `mapstructure:"hosts" validate:"min=1" yaml:"hosts"`

	Login    string `mapstructure:"login" yaml:"login,omitempty"`
	Passcode string `mapstructure:"passcode" yaml:"passcode,omitempty"`

	// Source is the subscribed firehose destination.
	Source string `mapstructure:"source" validate:"required" yaml:"source"`

	// SubscriptionID identifies this worker's subscription; acks carry it.
	SubscriptionID string `mapstructure:"subscription_id" validate:"required" yaml:"subscription_id"`

	// Prefetch is the broker-side unacked-frame window.
	Prefetch int `mapstructure:"prefetch" validate:"gt=0" yaml:"prefetch"`

	// ReconnectWait is the pause between reconnect attempts.
	ReconnectWait time.Duration `mapstructure:"reconnect_wait" yaml:"reconnect_wait"`
}

// ApplyDefaults fills unset fields with production defaults.
func (c *Config) ApplyDefaults() {
	if len(c.Hosts) == 0 {
		c.Hosts = []string{"localhost:61613"}
	}
	if c.Source == "" {
		c.Source = "/queue/feeds.aprs.is"
	}
	if c.SubscriptionID == "" {
		c.SubscriptionID = "aprsinject"
	}
	if c.Prefetch == 0 {
		c.Prefetch = 1024
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
}

// Frame is one consumed broker message.
type Frame struct {
	MessageID string
	Body      string
}

// conn is the slice of the STOMP connection the broker uses; satisfied by
// *stompngo.Connection.
type conn interface {
	Subscribe(stompngo.Headers) (<-chan stompngo.MessageData, error)
	Ack(stompngo.Headers) error
	Send(stompngo.Headers, string) error
	Disconnect(stompngo.Headers) error
}

// Broker owns one STOMP connection and its firehose subscription. It is
// used by a single worker and is not safe for concurrent use.
type Broker struct {
	cfg  Config
	host int // next host index

	conn   conn
	frames <-chan stompngo.MessageData

	disconnects uint64

	// open dials and connects one host; swapped by tests.
	open func(host string) (conn, error)

	sleep func(time.Duration)
}

// New builds a disconnected Broker; call Connect before Receive.
func New(cfg Config) *Broker {
	cfg.ApplyDefaults()
	b := &Broker{cfg: cfg, sleep: time.Sleep}
	b.open = b.dial
	return b
}

func (b *Broker) dial(host string) (conn, error) {
	nc, err := net.Dial("tcp", host)
	if err != nil {
		return nil, err
	}

	h, _, _ := net.SplitHostPort(host)
	headers := stompngo.Headers{
		"accept-version", "1.1",
		"host", h,
		"heart-beat", "0,5000",
	}
	if b.cfg.Login != "" {
		headers = headers.Add("login", b.cfg.Login).Add("passcode", b.cfg.Passcode)
	}

	sc, err := stompngo.Connect(nc, headers)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return sc, nil
}

// Connect establishes the connection and subscription, retrying until it
// succeeds or ctx is done. Hosts rotate across attempts.
func (b *Broker) Connect(ctx context.Context) error {
	for {
		host := b.cfg.Hosts[b.host%len(b.cfg.Hosts)]
		b.host++

		if err := b.connectOnce(host); err != nil {
			logger.Warn("broker connect failed",
				logger.KeyHost, host,
				logger.KeyError, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			b.sleep(b.cfg.ReconnectWait)
			continue
		}

		logger.Info("broker connected",
			logger.KeyHost, host,
			"destination", b.cfg.Source)
		return nil
	}
}

func (b *Broker) connectOnce(host string) error {
	c, err := b.open(host)
	if err != nil {
		return err
	}

	frames, err := c.Subscribe(stompngo.Headers{
		"destination", b.cfg.Source,
		"id", b.cfg.SubscriptionID,
		"ack", "client-individual",
		"activemq.prefetchSize", strconv.Itoa(b.cfg.Prefetch),
	})
	if err != nil {
		c.Disconnect(stompngo.Headers{})
		return fmt.Errorf("subscribe: %w", err)
	}

	b.conn = c
	b.frames = frames
	return nil
}

// Receive blocks for the next frame. A dead connection is torn down and
// re-established transparently; the only error returned is ctx's.
func (b *Broker) Receive(ctx context.Context) (Frame, error) {
	for {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case md, ok := <-b.frames:
			if !ok || md.Error != nil {
				b.disconnects++
				logger.Warn("broker connection lost",
					logger.KeyError, md.Error,
					logger.KeyCount, b.disconnects)
				b.close()
				b.sleep(b.cfg.ReconnectWait)
				if err := b.Connect(ctx); err != nil {
					return Frame{}, err
				}
				continue
			}
			if md.Message.Command != stompngo.MESSAGE {
				continue
			}
			return Frame{
				MessageID: md.Message.Headers.Value("message-id"),
				Body:      string(md.Message.Body),
			}, nil
		}
	}
}

// Ack acknowledges one consumed frame.
func (b *Broker) Ack(f Frame) error {
	return b.conn.Ack(stompngo.Headers{
		"message-id", f.MessageID,
		"subscription", b.cfg.SubscriptionID,
	})
}

// Publish sends a payload to a downstream destination.
func (b *Broker) Publish(destination, body string) error {
	return b.conn.Send(stompngo.Headers{"destination", destination}, body)
}

// Disconnects reports how many times the connection has dropped.
func (b *Broker) Disconnects() uint64 {
	return b.disconnects
}

// Close tears down the connection.
func (b *Broker) Close() {
	b.close()
}

func (b *Broker) close() {
	if b.conn != nil {
		b.conn.Disconnect(stompngo.Headers{})
		b.conn = nil
		b.frames = nil
	}
}
