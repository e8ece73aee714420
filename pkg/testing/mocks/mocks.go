package mocks

import (
	"context"
	"sync"

	shared "github.com/geohive/server/pkg"
)

// --- Mock Database ---

type MockDatabase struct {
	KnownStationKeysFunc  func(ctx context.Context, technology, shard string, keys []string) ([]string, error)
	GetUserByNicknameFunc func(ctx context.Context, nickname string) (*shared.User, error)
	CreateUserFunc        func(ctx context.Context, nickname string) (*shared.User, error)
	GetAPIKeyFunc         func(ctx context.Context, key string) (*shared.APIKey, error)
}

func (m *MockDatabase) KnownStationKeys(ctx context.Context, technology, shard string, keys []string) ([]string, error) {
	if m.KnownStationKeysFunc != nil {
		return m.KnownStationKeysFunc(ctx, technology, shard, keys)
	}
	return nil, nil
}

func (m *MockDatabase) GetUserByNickname(ctx context.Context, nickname string) (*shared.User, error) {
	if m.GetUserByNicknameFunc != nil {
		return m.GetUserByNicknameFunc(ctx, nickname)
	}
	return nil, nil
}

func (m *MockDatabase) CreateUser(ctx context.Context, nickname string) (*shared.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, nickname)
	}
	return &shared.User{ID: "user-1", Nickname: nickname}, nil
}

func (m *MockDatabase) GetAPIKey(ctx context.Context, key string) (*shared.APIKey, error) {
	if m.GetAPIKeyFunc != nil {
		return m.GetAPIKeyFunc(ctx, key)
	}
	return nil, nil
}

// --- Capture Publisher ---

type PublishedMessage struct {
	Topic string
	Data  []byte
}

// CapturePublisher records every publish; PublishFunc overrides the
// default success behavior when set.
type CapturePublisher struct {
	PublishFunc func(ctx context.Context, topic string, data []byte) (string, error)

	mu       sync.Mutex
	Messages []PublishedMessage
}

func (p *CapturePublisher) Publish(ctx context.Context, topic string, data []byte) (string, error) {
	if p.PublishFunc != nil {
		return p.PublishFunc(ctx, topic, data)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, PublishedMessage{Topic: topic, Data: data})
	return "msg-id", nil
}

// ByTopic returns the captured messages for one topic.
func (p *CapturePublisher) ByTopic(topic string) []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PublishedMessage
	for _, m := range p.Messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Topics returns the distinct topics published to, in first-publish order.
func (p *CapturePublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, m := range p.Messages {
		if !seen[m.Topic] {
			seen[m.Topic] = true
			out = append(out, m.Topic)
		}
	}
	return out
}

// --- Capture Stats ---

type CountedMetric struct {
	Name  string
	Value int64
	Tags  []string
}

type CaptureStats struct {
	mu      sync.Mutex
	Metrics []CountedMetric
}

func (s *CaptureStats) Count(name string, value int64, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metrics = append(s.Metrics, CountedMetric{Name: name, Value: value, Tags: tags})
}

func (s *CaptureStats) Close() error { return nil }

// Total sums the counted values for one metric name.
func (s *CaptureStats) Total(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, m := range s.Metrics {
		if m.Name == name {
			total += m.Value
		}
	}
	return total
}
