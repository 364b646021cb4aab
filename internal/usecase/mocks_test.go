package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/loan-advisor/internal/entity"
	"github.com/xavierca1/loan-advisor/internal/infra/queue"
)

// memoryRepo is a minimal map-backed SessionRepository.
type memoryRepo struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sessions: make(map[string]entity.Session)}
}

func (r *memoryRepo) Get(_ context.Context, senderID string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[senderID]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return &s, nil
}

func (r *memoryRepo) Put(_ context.Context, s *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.SenderID] = *s
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, senderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, senderID)
	return nil
}

type MockSessionRepository struct{ mock.Mock }

func (m *MockSessionRepository) Get(ctx context.Context, senderID string) (*entity.Session, error) {
	args := m.Called(ctx, senderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepository) Put(ctx context.Context, s *entity.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, senderID string) error {
	return m.Called(ctx, senderID).Error(0)
}

type MockTranslator struct{ mock.Mock }

func (m *MockTranslator) DetectLanguage(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	args := m.Called(ctx, text, target)
	return args.String(0), args.Error(1)
}

type MockChatModel struct {
	mock.Mock
	name string
}

func (m *MockChatModel) Name() string { return m.name }

func (m *MockChatModel) Reply(ctx context.Context, input, language string) (string, error) {
	args := m.Called(ctx, input, language)
	return args.String(0), args.Error(1)
}

type MockSpeechToText struct{ mock.Mock }

func (m *MockSpeechToText) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	args := m.Called(ctx, audio, contentType)
	return args.String(0), args.Error(1)
}

type MockTextToSpeech struct{ mock.Mock }

func (m *MockTextToSpeech) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	args := m.Called(ctx, text, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockMediaFetcher struct{ mock.Mock }

func (m *MockMediaFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

type MockMediaStore struct{ mock.Mock }

func (m *MockMediaStore) Save(ctx context.Context, data []byte, ext string) (string, error) {
	args := m.Called(ctx, data, ext)
	return args.String(0), args.Error(1)
}

type MockLeadPublisher struct{ mock.Mock }

func (m *MockLeadPublisher) PublishLead(ctx context.Context, payload queue.LeadPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
