package http

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/edibleworks/gift-concierge/internal/domain"
	"github.com/edibleworks/gift-concierge/internal/usecases"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type stubStreamChat struct {
	events      []domain.StreamEvent
	err         error
	calls       int
	gotMessages []domain.ClientMessage
}

func (s *stubStreamChat) Execute(_ context.Context, messages []domain.ClientMessage, onEvent domain.StreamEventCallback) error {
	s.calls++
	s.gotMessages = messages
	for _, event := range s.events {
		if err := onEvent(event); err != nil {
			return err
		}
	}
	return s.err
}

type stubCompareProducts struct {
	analysis    string
	err         error
	gotProducts []domain.Product
	gotContext  usecases.CompareContext
}

func (s *stubCompareProducts) Execute(_ context.Context, products []domain.Product, giftContext usecases.CompareContext) (string, error) {
	s.gotProducts = products
	s.gotContext = giftContext
	if s.err != nil {
		return "", s.err
	}
	return s.analysis, nil
}

type stubIngestProducts struct {
	report      usecases.IngestReport
	err         error
	gotKeywords []string
}

func (s *stubIngestProducts) Execute(_ context.Context, keywords []string) (usecases.IngestReport, error) {
	s.gotKeywords = keywords
	if s.err != nil {
		return usecases.IngestReport{}, s.err
	}
	return s.report, nil
}

type stubSearchClient struct {
	products []domain.Product
	err      error
	keyword  string
	zipCode  string
}

func (s *stubSearchClient) Search(_ context.Context, keyword, zipCode string) ([]domain.Product, error) {
	s.keyword = keyword
	s.zipCode = zipCode
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

type stubProductIndex struct {
	count    int
	countErr error
}

func (s *stubProductIndex) Similar(context.Context, []float64, int, domain.PriceRange, domain.DeliveryFilter) ([]domain.Product, error) {
	return nil, nil
}

func (s *stubProductIndex) Upsert(context.Context, []domain.Product, [][]float64) error {
	return nil
}

func (s *stubProductIndex) Count(context.Context) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.count, nil
}

type serverStubs struct {
	streamChat *stubStreamChat
	compare    *stubCompareProducts
	ingest     *stubIngestProducts
	search     *stubSearchClient
	index      *stubProductIndex
	clock      *fakeClock
}

func newTestServer() (*ConciergeServer, *serverStubs) {
	stubs := &serverStubs{
		streamChat: &stubStreamChat{},
		compare:    &stubCompareProducts{},
		ingest:     &stubIngestProducts{},
		search:     &stubSearchClient{},
		index:      &stubProductIndex{},
		clock:      &fakeClock{now: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)},
	}
	api := &ConciergeServer{
		Logger:                 log.New(os.Stdout, "", log.Lmsgprefix),
		StreamChatUseCase:      stubs.streamChat,
		CompareProductsUseCase: stubs.compare,
		IngestProductsUseCase:  stubs.ingest,
		SearchClient:           stubs.search,
		ProductIndex:           stubs.index,
		TimeProvider:           stubs.clock,
		limiter:                newRateLimiter(20, time.Minute, stubs.clock),
	}
	return api, stubs
}
