// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/journal/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testEvtType event.EventType = "test.event"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestBus(t *testing.T) *event.EventBus {
	t.Helper()
	eb := event.NewEventBus(nil, nil)
	t.Cleanup(eb.Stop)
	return eb
}

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return event.Event{}
}

func TestEventBusSingleSubscriber(t *testing.T) {
	eb := newTestBus(t)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	evt := receive(t, subCh)
	assert.Equal(t, testEvtType, evt.Type)
	assert.Equal(t, 999, evt.Data)
	assert.False(t, evt.Timestamp.IsZero())
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	eb := newTestBus(t)
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	_, otherCh := eb.Subscribe("other.event")
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "data"))
	assert.Equal(t, "data", receive(t, sub1Ch).Data)
	assert.Equal(t, "data", receive(t, sub2Ch).Data)
	assert.Empty(t, otherCh)
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := newTestBus(t)
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	_, ok := <-subCh
	assert.False(t, ok, "channel should be closed after Unsubscribe")
	// Unknown IDs are ignored
	eb.Unsubscribe(testEvtType, subId)
}

func TestSubscribeFunc(t *testing.T) {
	eb := newTestBus(t)
	var wg sync.WaitGroup
	wg.Add(2)
	var calls atomic.Int32
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		defer wg.Done()
		if calls.Add(1) == 1 {
			panic("handler failure")
		}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 2))
	wg.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestPublishAsync(t *testing.T) {
	eb := newTestBus(t)
	_, subCh := eb.Subscribe(testEvtType)
	require.True(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, "async")))
	assert.Equal(t, "async", receive(t, subCh).Data)
}

func TestPublishDoesNotBlockOnFullChannel(t *testing.T) {
	registry := prometheus.NewRegistry()
	eb := event.NewEventBus(registry, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range event.EventQueueSize + 5 {
			eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, subCh, event.EventQueueSize)
	// The slow subscriber stays registered
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "late"))
	assert.Equal(t, 0, receive(t, subCh).Data)
	assert.InDelta(
		t,
		6,
		testutil.ToFloat64(prometheusCounter(t, registry, "journal_event_delivery_errors_total")),
		0,
	)
}

type failingSubscriber struct {
	closed atomic.Bool
	panic  bool
}

func (f *failingSubscriber) Deliver(event.Event) error {
	if f.panic {
		panic("remote failure")
	}
	return errors.New("connection reset")
}

func (f *failingSubscriber) Close() {
	f.closed.Store(true)
}

func TestFailingSubscriberIsRemoved(t *testing.T) {
	for _, doPanic := range []bool{false, true} {
		registry := prometheus.NewRegistry()
		eb := event.NewEventBus(registry, nil)
		sub := &failingSubscriber{panic: doPanic}
		eb.RegisterSubscriber(testEvtType, sub)
		eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
		assert.True(t, sub.closed.Load())
		assert.InDelta(
			t,
			0,
			testutil.ToFloat64(prometheusCounter(t, registry, "journal_event_subscribers")),
			0,
		)
		eb.Stop()
	}
}

func TestStop(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	eb.Stop()
	_, ok := <-subCh
	assert.False(t, ok)
	assert.False(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 1)))
	// Publishing and stopping again after Stop are harmless
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	eb.Stop()
}

func TestConcurrentPublishUnsubscribe(t *testing.T) {
	eb := newTestBus(t)
	var wg sync.WaitGroup
	for range 10 {
		subId, _ := eb.Subscribe(testEvtType)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range 50 {
				eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(testEvtType, subId)
		}()
	}
	wg.Wait()
}

// prometheusCounter gathers a metric family and returns it as a collector
// summing all of its series
func prometheusCounter(
	t *testing.T,
	registry *prometheus.Registry,
	name string,
) prometheus.Collector {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() != nil {
				total += metric.GetCounter().GetValue()
			}
			if metric.GetGauge() != nil {
				total += metric.GetGauge().GetValue()
			}
		}
	}
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "sum"},
		func() float64 { return total },
	)
}
