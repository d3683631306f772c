package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gmallard/stompngo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	frames chan stompngo.MessageData

	subscribeHeaders stompngo.Headers
	acks             []stompngo.Headers
	sends            []sentFrame
	disconnected     bool
}

type sentFrame struct {
	headers stompngo.Headers
	body    string
}

func (f *fakeConn) Subscribe(h stompngo.Headers) (<-chan stompngo.MessageData, error) {
	f.subscribeHeaders = h
	return f.frames, nil
}

func (f *fakeConn) Ack(h stompngo.Headers) error {
	f.acks = append(f.acks, h)
	return nil
}

func (f *fakeConn) Send(h stompngo.Headers, body string) error {
	f.sends = append(f.sends, sentFrame{headers: h, body: body})
	return nil
}

func (f *fakeConn) Disconnect(stompngo.Headers) error {
	f.disconnected = true
	return nil
}

func message(id, body string) stompngo.MessageData {
	return stompngo.MessageData{
		Message: stompngo.Message{
			Command: stompngo.MESSAGE,
			Headers: stompngo.Headers{"message-id", id},
			Body:    []byte(body),
		},
	}
}

func newTestBroker(t *testing.T, conns ...*fakeConn) (*Broker, *[]string) {
	t.Helper()

	b := New(Config{
		Hosts:          []string{"mq1:61613", "mq2:61613"},
		SubscriptionID: "inject-1",
	})

	hosts := &[]string{}
	i := 0
	b.open = func(host string) (conn, error) {
		*hosts = append(*hosts, host)
		if i >= len(conns) {
			return nil, errors.New("connection refused")
		}
		c := conns[i]
		i++
		return c, nil
	}
	b.sleep = func(time.Duration) {}
	return b, hosts
}

func TestConnectSubscribes(t *testing.T) {
	fc := &fakeConn{frames: make(chan stompngo.MessageData, 1)}
	b, hosts := newTestBroker(t, fc)

	require.NoError(t, b.Connect(context.Background()))

	assert.Equal(t, []string{"mq1:61613"}, *hosts)
	assert.Equal(t, "/queue/feeds.aprs.is", fc.subscribeHeaders.Value("destination"))
	assert.Equal(t, "inject-1", fc.subscribeHeaders.Value("id"))
	assert.Equal(t, "client-individual", fc.subscribeHeaders.Value("ack"))
	assert.Equal(t, "1024", fc.subscribeHeaders.Value("activemq.prefetchSize"))
}

func TestReceive(t *testing.T) {
	fc := &fakeConn{frames: make(chan stompngo.MessageData, 2)}
	b, _ := newTestBroker(t, fc)
	require.NoError(t, b.Connect(context.Background()))

	fc.frames <- message("msg-1", "1700000000 N0CALL>APRS:>hi")

	f, err := b.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", f.MessageID)
	assert.Equal(t, "1700000000 N0CALL>APRS:>hi", f.Body)
}

func TestReceiveReconnectsOnClosedChannel(t *testing.T) {
	dead := &fakeConn{frames: make(chan stompngo.MessageData)}
	close(dead.frames)
	live := &fakeConn{frames: make(chan stompngo.MessageData, 1)}
	live.frames <- message("msg-2", "payload")

	b, hosts := newTestBroker(t, dead, live)
	require.NoError(t, b.Connect(context.Background()))

	f, err := b.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "msg-2", f.MessageID)
	assert.True(t, dead.disconnected)
	assert.Equal(t, []string{"mq1:61613", "mq2:61613"}, *hosts, "reconnect rotates hosts")
	assert.Equal(t, uint64(1), b.Disconnects())
}

func TestReceiveHonorsContext(t *testing.T) {
	fc := &fakeConn{frames: make(chan stompngo.MessageData)}
	b, _ := newTestBroker(t, fc)
	require.NoError(t, b.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAck(t *testing.T) {
	fc := &fakeConn{frames: make(chan stompngo.MessageData)}
	b, _ := newTestBroker(t, fc)
	require.NoError(t, b.Connect(context.Background()))

	require.NoError(t, b.Ack(Frame{MessageID: "msg-1"}))
	require.Len(t, fc.acks, 1)
	assert.Equal(t, "msg-1", fc.acks[0].Value("message-id"))
	assert.Equal(t, "inject-1", fc.acks[0].Value("subscription"))
}

func TestPublish(t *testing.T) {
	fc := &fakeConn{frames: make(chan stompngo.MessageData)}
	b, _ := newTestBroker(t, fc)
	require.NoError(t, b.Connect(context.Background()))

	require.NoError(t, b.Publish(TopicErrors, "packet:x|error:parse"))
	require.Len(t, fc.sends, 1)
	assert.Equal(t, TopicErrors, fc.sends[0].headers.Value("destination"))
	assert.Equal(t, "packet:x|error:parse", fc.sends[0].body)
}

func TestConnectRetriesOnFailure(t *testing.T) {
	live := &fakeConn{frames: make(chan stompngo.MessageData)}
	b, hosts := newTestBroker(t, live)

	calls := 0
	inner := b.open
	b.open = func(host string) (conn, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return inner(host)
	}

	require.NoError(t, b.Connect(context.Background()))
	assert.Equal(t, []string{"mq2:61613"}, *hosts, "second attempt lands on the next host")
}
