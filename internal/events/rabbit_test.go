package events

import (
	"context"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestRabbit_NilPublisherDrops(t *testing.T) {
	var r *Rabbit
	if err := r.Publish(context.Background(), CartUpdated, []byte(`{}`)); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	r.Close()
}

func TestRabbit_PublishDelivers(t *testing.T) {
	url := os.Getenv("RABBIT_URL")
	if url == "" {
		t.Skip("RABBIT_URL not set")
	}
	exchange := "storefront-test"
	pub, err := NewRabbit(url, exchange, nil)
	if err != nil {
		t.Skipf("rabbit unavailable: %v", err)
	}
	defer pub.Close()

	conn, err := amqp.Dial(url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	defer ch.Close()
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatalf("declare queue: %v", err)
	}
	if err := ch.QueueBind(q.Name, CartUpdated, exchange, false, nil); err != nil {
		t.Fatalf("bind: %v", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	body := []byte(`{"userId":"u-1","items":{"7":2},"subtotal":20}`)
	if err := pub.Publish(context.Background(), CartUpdated, body); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case d := <-msgs:
		if string(d.Body) != string(body) || d.ContentType != "application/json" {
			t.Fatalf("unexpected delivery %s %s", d.ContentType, d.Body)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no delivery")
	}
}
