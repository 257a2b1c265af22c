package eventbus

import "testing"

func TestPublishSubscribe(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Publish("hello")
	select {
	case e := <-sub:
		if e != "hello" {
			t.Fatalf("got %v", e)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	b.Publish("dropped")
	if _, ok := <-sub; ok {
		t.Fatal("channel should be closed")
	}
}

func TestPublishNonBlocking(t *testing.T) {
	b := New()
	_ = b.Subscribe()
	// Fill past the buffer; Publish must never block.
	for i := 0; i < 100; i++ {
		b.Publish(i)
	}
}

func TestCloseIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Close()
	b.Close()
	if _, ok := <-sub; ok {
		t.Fatal("subscriber channel should be closed")
	}
	b.Publish("after close")
}
