// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/MarceTxt/gwen-ai-chat/internal/logging"
)

// =============================================================================
// CHANGE FEED
// =============================================================================

const topicPrefix = "conversation."

func topicFor(convID string) string {
	return topicPrefix + convID
}

// feed fans out "conversation changed" notifications to live subscriptions.
// A notification carries only the conversation id; subscribers reload the
// document themselves, so coalesced or reordered notifications still
// converge on the latest state.
type feed struct {
	pubsub *gochannel.GoChannel

	mu     sync.Mutex
	topics map[string]int // conversation id -> live subscribers
}

func newFeed() *feed {
	return &feed{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			logging.NewWatermill(log.Logger.With().Str("component", "feed").Logger()),
		),
		topics: make(map[string]int),
	}
}

// notify announces a change to convID.
func (f *feed) notify(convID string) {
	if !f.watched(convID) {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), message.Payload(convID))
	if err := f.pubsub.Publish(topicFor(convID), msg); err != nil {
		log.Warn().Err(err).Str("conversation_id", convID).Msg("failed to publish change")
	}
}

// subscribe registers interest in convID until ctx is cancelled and
// release is called.
func (f *feed) subscribe(ctx context.Context, convID string) (<-chan *message.Message, error) {
	ch, err := f.pubsub.Subscribe(ctx, topicFor(convID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to change feed")
	}
	f.mu.Lock()
	f.topics[convID]++
	f.mu.Unlock()
	return ch, nil
}

func (f *feed) release(convID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.topics[convID] <= 1 {
		delete(f.topics, convID)
		return
	}
	f.topics[convID]--
}

func (f *feed) watched(convID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topics[convID] > 0
}

// active returns the conversation ids with live subscribers.
func (f *feed) active() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.topics))
	for id := range f.topics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *feed) close() error {
	return f.pubsub.Close()
}
