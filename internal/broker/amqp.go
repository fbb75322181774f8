package broker

import (
	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// AMQPDialer dials RabbitMQ brokers over the AMQP 0-9-1 protocol.
type AMQPDialer struct{}

// NewAMQPDialer creates a Dialer backed by streadway/amqp.
func NewAMQPDialer() *AMQPDialer {
	return &AMQPDialer{}
}

// Dial opens one AMQP connection to addr (an amqp:// URL).
func (d *AMQPDialer) Dial(addr string) (Connection, error) {
	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{
		conn:    conn,
		id:      uuid.NewString(),
		closeCh: watchClose(conn.NotifyClose(make(chan *amqp.Error, 1))),
	}, nil
}

// amqpConnection wraps *amqp.Connection.
type amqpConnection struct {
	conn    *amqp.Connection
	id      string
	closeCh <-chan error
}

func (c *amqpConnection) OpenChannel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChannel{
		ch:      ch,
		id:      uuid.NewString(),
		closeCh: watchClose(ch.NotifyClose(make(chan *amqp.Error, 1))),
	}, nil
}

func (c *amqpConnection) NotifyClose() <-chan error { return c.closeCh }
func (c *amqpConnection) IsClosed() bool            { return c.conn.IsClosed() }
func (c *amqpConnection) HandleID() string          { return c.id }
func (c *amqpConnection) Close() error              { return c.conn.Close() }

// amqpChannel wraps *amqp.Channel.
type amqpChannel struct {
	ch      *amqp.Channel
	id      string
	closeCh <-chan error
}

func (c *amqpChannel) NotifyClose() <-chan error { return c.closeCh }
func (c *amqpChannel) HandleID() string          { return c.id }
func (c *amqpChannel) Close() error              { return c.ch.Close() }

// watchClose adapts an amqp close notification to a one-shot error
// signal. A graceful close closes the source channel without a value;
// in that case amqp.ErrClosed is delivered so the signal always carries
// an error.
func watchClose(src chan *amqp.Error) <-chan error {
	dst := make(chan error, 1)
	go func() {
		err, ok := <-src
		if !ok || err == nil {
			dst <- amqp.ErrClosed
			return
		}
		dst <- err
	}()
	return dst
}

// AMQPConnection unwraps a pooled connection to its *amqp.Connection.
// Returns false if conn was not dialed by an AMQPDialer.
func AMQPConnection(conn Connection) (*amqp.Connection, bool) {
	c, ok := conn.(*amqpConnection)
	if !ok {
		return nil, false
	}
	return c.conn, true
}

// AMQPChannel unwraps a pooled channel to its *amqp.Channel for
// publish/consume use.
func AMQPChannel(ch Channel) (*amqp.Channel, bool) {
	c, ok := ch.(*amqpChannel)
	if !ok {
		return nil, false
	}
	return c.ch, true
}
