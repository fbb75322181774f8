// Package broker defines the broker-protocol surface the pool depends
// on and provides the RabbitMQ implementation over streadway/amqp.
//
// The pool only ever dials, opens channels, watches close notifications,
// and closes handles. Publishing, consuming, acknowledgments, and
// topology declaration belong to callers, which unwrap pooled handles
// via AMQPConnection / AMQPChannel.
package broker
