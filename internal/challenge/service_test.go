package challenge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type fixedText struct{ text string }

func (f fixedText) Next(context.Context) string { return f.text }

type stubRenderer struct {
	calls int
	err   error
}

func (r *stubRenderer) RenderDataURI(text string) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return "data:image/png;base64," + text, nil
}

type failingStore struct{ *MemoryStore }

func (failingStore) Put(context.Context, string, string) error { return errors.New("backend down") }

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
	svc   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	s.svc = NewService(fixedText{"AB3dE9"}, &stubRenderer{}, s.store, nil, nil)
	n := 0
	s.svc.newID = func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
}

func (s *ServiceSuite) TestCreateStoresNormalizedAnswer() {
	ch, err := s.svc.Create(s.ctx)
	s.Require().NoError(err)
	s.Equal("c1", ch.ID)
	s.Equal("AB3dE9", ch.Text)
	s.Equal("data:image/png;base64,AB3dE9", ch.Image)

	stored, err := s.store.Peek(s.ctx, "c1")
	s.Require().NoError(err)
	s.Equal("AB3DE9", stored)
}

func (s *ServiceSuite) TestEndToEnd() {
	ch, err := s.svc.Create(s.ctx)
	s.Require().NoError(err)

	s.Equal(Correct, s.svc.Verify(s.ctx, ch.ID, "ab3de9"))
	s.Equal(Wrong, s.svc.Verify(s.ctx, ch.ID, "AB3DE9"), "second success must not be possible")
}

func (s *ServiceSuite) TestWrongGuessIsIdempotent() {
	ch, err := s.svc.Create(s.ctx)
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		s.Equal(Wrong, s.svc.Verify(s.ctx, ch.ID, "ZZZZZZ"))
	}
	live, err := s.svc.Lookup(s.ctx, ch.ID)
	s.Require().NoError(err)
	s.True(live)
	s.Equal(Correct, s.svc.Verify(s.ctx, ch.ID, "AB3DE9"))
}

func (s *ServiceSuite) TestWhitespaceAndCaseTolerance() {
	s.Require().NoError(s.store.Put(s.ctx, "fixed", "ABCDEF"))
	s.Equal(Correct, s.svc.Verify(s.ctx, "fixed", "  abCdEf  "))
}

func (s *ServiceSuite) TestUnknownID() {
	s.Equal(Wrong, s.svc.Verify(s.ctx, "not-a-real-id", "ABCDEF"))
	live, err := s.svc.Lookup(s.ctx, "not-a-real-id")
	s.Require().NoError(err)
	s.False(live)
}

func (s *ServiceSuite) TestConcurrentDuplicateSubmission() {
	defer goleak.VerifyNone(s.T())

	ch, err := s.svc.Create(s.ctx)
	s.Require().NoError(err)

	results := make([]Result, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.svc.Verify(s.ctx, ch.ID, "AB3DE9")
		}(i)
	}
	wg.Wait()

	s.ElementsMatch([]Result{Correct, Wrong}, results)
}

func (s *ServiceSuite) TestCreateRetriesRenderOnce() {
	r := &stubRenderer{err: errors.New("encode")}
	svc := NewService(fixedText{"ABCDEF"}, r, s.store, nil, nil)

	_, err := svc.Create(s.ctx)
	s.Error(err)
	s.Equal(2, r.calls)
	s.Equal(0, s.store.Len())
}

func (s *ServiceSuite) TestCreateSurfacesStoreFailure() {
	svc := NewService(fixedText{"ABCDEF"}, &stubRenderer{}, failingStore{NewMemoryStore()}, nil, nil)
	_, err := svc.Create(s.ctx)
	s.Error(err)
}
