package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickgao/amqppool/internal/config"
)

func TestAcquireConnection_RoundRobin(t *testing.T) {
	dialer := &fakeDialer{}
	reg, err := New(context.Background(), testPoolConfig(map[string]config.ClientConfig{
		"orders": {Addresses: []string{"a"}, Connections: 3, ChannelsPerConnection: 1},
	}), dialer)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer reg.Close()

	client, _ := reg.Get("orders")

	// Two full laps: each slot visited exactly once per lap, in a
	// stable cyclic order.
	want := []string{
		dialer.conn(0).id, dialer.conn(1).id, dialer.conn(2).id,
		dialer.conn(0).id, dialer.conn(1).id, dialer.conn(2).id,
	}
	for i, wantID := range want {
		conn, err := client.AcquireConnection()
		if err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
		if conn.HandleID() != wantID {
			t.Errorf("acquire %d = handle %s, want %s", i, conn.HandleID(), wantID)
		}
	}
}

func TestAcquireConnection_CursorAdvancesPastUnready(t *testing.T) {
	dialer := &fakeDialer{}
	reg, err := New(context.Background(), testPoolConfig(map[string]config.ClientConfig{
		"orders": {Addresses: []string{"a"}, Connections: 3, ChannelsPerConnection: 1},
	}), dialer)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer reg.Close()

	client, _ := reg.Get("orders")

	// Kill slot 1 and keep its reconnect failing so it stays not-ready.
	dialer.setFailAll(true)
	dialer.conn(1).fail(errors.New("broker went away"))
	waitUntil(t, 2*time.Second, "slot 1 to go not-ready", func() bool {
		return client.Stats().ReadyConnections == 2
	})

	// The cursor still visits every slot; the dead one costs its turn.
	type step struct {
		id  string
		err bool
	}
	want := []step{
		{id: dialer.conn(0).id},
		{err: true},
		{id: dialer.conn(2).id},
		{id: dialer.conn(0).id},
		{err: true},
		{id: dialer.conn(2).id},
	}
	for i, w := range want {
		conn, err := client.AcquireConnection()
		if w.err {
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("acquire %d err = %v, want ErrUnavailable", i, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
		if conn.HandleID() != w.id {
			t.Errorf("acquire %d = handle %s, want %s", i, conn.HandleID(), w.id)
		}
	}
}

func TestAcquireChannel_ScopedToSelectedConnection(t *testing.T) {
	dialer := &fakeDialer{}
	reg, err := New(context.Background(), testPoolConfig(map[string]config.ClientConfig{
		"orders": {Addresses: []string{"a"}, Connections: 2, ChannelsPerConnection: 2},
	}), dialer)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer reg.Close()

	client, _ := reg.Get("orders")

	// Connection cursor and the selected connection's channel cursor
	// both advance: conn0/ch0, conn1/ch0, conn0/ch1, conn1/ch1, wrap.
	want := []string{
		dialer.conn(0).channel(0).id,
		dialer.conn(1).channel(0).id,
		dialer.conn(0).channel(1).id,
		dialer.conn(1).channel(1).id,
		dialer.conn(0).channel(0).id,
	}
	for i, wantID := range want {
		ch, err := client.AcquireChannel()
		if err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
		if ch.HandleID() != wantID {
			t.Errorf("acquire %d = handle %s, want %s", i, ch.HandleID(), wantID)
		}
	}
}
