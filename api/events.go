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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/blinklabs-io/journal/event"
	"github.com/blinklabs-io/journal/ledger"
)

const streamQueueSize = 64

// streamSubscriber bridges the event bus to one server-sent event stream
type streamSubscriber struct {
	events    chan event.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newStreamSubscriber() *streamSubscriber {
	return &streamSubscriber{
		events: make(chan event.Event, streamQueueSize),
		closed: make(chan struct{}),
	}
}

func (s *streamSubscriber) Deliver(evt event.Event) error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	select {
	case s.events <- evt:
		return nil
	default:
		return event.ErrSubscriberFull
	}
}

func (s *streamSubscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// handleEvents streams ledger events as server-sent events. The "type"
// query parameter selects event types, comma separated, defaulting to all
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	eventTypes := []event.EventType{
		ledger.TransactionEventType,
		ledger.AccountEventType,
	}
	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		eventTypes = eventTypes[:0]
		for _, t := range strings.Split(typeParam, ",") {
			switch evtType := event.EventType(strings.TrimSpace(t)); evtType {
			case ledger.TransactionEventType, ledger.AccountEventType:
				eventTypes = append(eventTypes, evtType)
			default:
				writeError(w, r, http.StatusBadRequest, "unknown event type: "+t)
				return
			}
		}
	}
	sub := newStreamSubscriber()
	for _, evtType := range eventTypes {
		subId := s.config.EventBus.RegisterSubscriber(evtType, sub)
		defer s.config.EventBus.Unsubscribe(evtType, subId)
	}
	s.metrics.streams.Inc()
	defer s.metrics.streams.Dec()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case <-sub.closed:
			return
		case evt := <-sub.events:
			data, err := json.Marshal(evt.Data)
			if err != nil {
				s.logger.Error("failed to encode event", "type", evt.Type, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
