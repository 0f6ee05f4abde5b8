package mqtt

import (
	"errors"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func doneToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

// pendingToken never completes.
func pendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	retained bool
	payload  string
}

type subscription struct {
	filter  string
	qos     byte
	handler paho.MessageHandler
}

type fakeClient struct {
	paho.Client

	mu           sync.Mutex
	connectErrs  []error
	connects     int
	connected    bool
	disconnected bool
	subscribeErr error
	publishErr   error
	hangPublish  bool
	subs         []subscription
	pubs         []published
}

func (f *fakeClient) Connect() paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		if err != nil {
			return doneToken(err)
		}
	}
	f.connected = true
	return doneToken(nil)
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) IsConnectionOpen() bool { return f.IsConnected() }

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnected = true
}

func (f *fakeClient) Subscribe(filter string, qos byte, h paho.MessageHandler) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return doneToken(f.subscribeErr)
	}
	f.subs = append(f.subs, subscription{filter: filter, qos: qos, handler: h})
	return doneToken(nil)
}

func (f *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hangPublish {
		return pendingToken()
	}
	if f.publishErr != nil {
		return doneToken(f.publishErr)
	}
	f.pubs = append(f.pubs, published{topic: topic, retained: retained, payload: payload.(string)})
	return doneToken(nil)
}

func (f *fakeClient) published() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.pubs...)
}

type fakeMessage struct {
	paho.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

type fakeDiag struct {
	ip   string
	rssi int
	ok   bool
}

func (d fakeDiag) IP() string        { return d.ip }
func (d fakeDiag) RSSI() (int, bool) { return d.rssi, d.ok }

var errBroker = errors.New("connection refused")
