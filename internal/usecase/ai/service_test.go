package ai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/johnquangdev/meeting-digest/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/meeting-digest/internal/usecase/errors"
)

// fakeModelClient answers with a canned body, or derives one from the prompt
type fakeModelClient struct {
	mu        sync.Mutex
	prompts   []string
	respond   func(prompt string) (string, error)
	fragments []string
	streamErr error
	// number of fragments the consumer actually pulled
	pulled int
}

func (f *fakeModelClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeModelClient) StreamGenerateContent(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f.mu.Lock()
		f.prompts = append(f.prompts, prompt)
		f.mu.Unlock()
		for _, fragment := range f.fragments {
			f.pulled++
			if !yield(fragment, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield("", f.streamErr)
		}
	}
}

type fakeSummaryRepo struct {
	mu      sync.Mutex
	saved   []*entities.MeetingSummary
	saveErr error
	findErr error
}

func (r *fakeSummaryRepo) Save(ctx context.Context, s *entities.MeetingSummary) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = fmt.Sprintf("id-%d", len(r.saved)+1)
	}
	r.saved = append(r.saved, s)
	return nil
}

func (r *fakeSummaryRepo) FindAll(ctx context.Context) ([]*entities.MeetingSummary, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.MeetingSummary, 0, len(r.saved))
	for i := len(r.saved) - 1; i >= 0; i-- {
		out = append(out, r.saved[i])
	}
	return out, nil
}

func (r *fakeSummaryRepo) FindByID(ctx context.Context, id string) (*entities.MeetingSummary, error) {
	return r.find(func(s *entities.MeetingSummary) bool { return s.ID == id })
}

func (r *fakeSummaryRepo) FindByPublicID(ctx context.Context, publicID string) (*entities.MeetingSummary, error) {
	return r.find(func(s *entities.MeetingSummary) bool { return s.PublicID == publicID })
}

func (r *fakeSummaryRepo) find(match func(*entities.MeetingSummary) bool) (*entities.MeetingSummary, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.saved {
		if match(s) {
			return s, nil
		}
	}
	return nil, nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	objects map[string]string
	done    chan struct{}
}

func newFakeArchiver() *fakeArchiver {
	return &fakeArchiver{objects: map[string]string{}, done: make(chan struct{}, 8)}
}

func (a *fakeArchiver) ArchiveFailedResponse(ctx context.Context, key, raw string) error {
	a.mu.Lock()
	a.objects[key] = raw
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func newTestService(t *testing.T, client ModelClient, repo *fakeSummaryRepo, archiver ResponseArchiver) *aiService {
	t.Helper()
	svc := NewAIService(client, repo, archiver, zaptest.NewLogger(t)).(*aiService)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestGenerateAndStore_Success(t *testing.T) {
	client := &fakeModelClient{respond: func(string) (string, error) {
		return wrapEnvelope(t, roadmapText), nil
	}}
	repo := &fakeSummaryRepo{}
	svc := newTestService(t, client, repo, nil)

	transcript := "Alice: let's ship v2 in July. Bob: I'll help."
	got, err := svc.GenerateAndStore(context.Background(), transcript)
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	assert.Same(t, repo.saved[0], got)
	assert.Equal(t, "id-1", got.ID)
	assert.NotEmpty(t, got.PublicID)
	assert.NotEqual(t, got.ID, got.PublicID)
	assert.Equal(t, transcript, got.OriginalTranscript)
	assert.Equal(t, "Team agreed on Q3 roadmap.", got.Overview)
	assert.Equal(t, []string{"Ship v2 in July"}, []string(got.KeyDecisions))
	assert.Equal(t, []entities.ActionItem{{Task: "Write spec", Assignee: "Alice"}}, []entities.ActionItem(got.ActionItems))
	assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), got.CreatedAt)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], transcript)
}

func TestGenerateAndStore_UpstreamErrorIsNotPersisted(t *testing.T) {
	upstream := &usecaseErrors.UpstreamError{Op: "generateContent", Timeout: true, Err: context.DeadlineExceeded}
	client := &fakeModelClient{respond: func(string) (string, error) { return "", upstream }}
	repo := &fakeSummaryRepo{}
	svc := newTestService(t, client, repo, nil)

	got, err := svc.GenerateAndStore(context.Background(), "transcript")
	assert.Nil(t, got)
	assert.Same(t, upstream, err)
	assert.ErrorIs(t, err, usecaseErrors.ErrUpstreamTimeout)
	assert.Empty(t, repo.saved)
}

func TestGenerateAndStore_ParseErrorArchivesRawOutput(t *testing.T) {
	raw := wrapEnvelope(t, "I'm sorry, I cannot help with that.")
	client := &fakeModelClient{respond: func(string) (string, error) { return raw, nil }}
	repo := &fakeSummaryRepo{}
	archiver := newFakeArchiver()
	svc := newTestService(t, client, repo, archiver)

	got, err := svc.GenerateAndStore(context.Background(), "transcript")
	assert.Nil(t, got)
	requireParseError(t, err)
	assert.Empty(t, repo.saved)

	select {
	case <-archiver.done:
	case <-time.After(2 * time.Second):
		t.Fatal("raw output was not archived")
	}
	require.NoError(t, svc.Shutdown(context.Background()))

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	require.Len(t, archiver.objects, 1)
	for key, body := range archiver.objects {
		assert.True(t, strings.HasPrefix(key, "failed-responses/2025-03-14/"), key)
		assert.True(t, strings.HasSuffix(key, ".txt"), key)
		assert.Equal(t, raw, body)
	}
}

func TestGenerateAndStore_PersistenceFailure(t *testing.T) {
	client := &fakeModelClient{respond: func(string) (string, error) {
		return wrapEnvelope(t, roadmapText), nil
	}}
	dbErr := errors.New("connection refused")
	repo := &fakeSummaryRepo{saveErr: dbErr}
	svc := newTestService(t, client, repo, nil)

	got, err := svc.GenerateAndStore(context.Background(), "transcript")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, usecaseErrors.ErrPersistence)
	assert.ErrorIs(t, err, dbErr)
}

func TestGenerateAndStore_BlankTranscript(t *testing.T) {
	client := &fakeModelClient{respond: func(string) (string, error) {
		t.Fatal("model must not be called for a blank transcript")
		return "", nil
	}}
	svc := newTestService(t, client, &fakeSummaryRepo{}, nil)

	_, err := svc.GenerateAndStore(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, usecaseErrors.ErrInvalidInput)
	assert.ErrorIs(t, err, entities.ErrEmptyTranscript)
}

func TestGenerateAndStore_ConcurrentCallsAreIndependent(t *testing.T) {
	// the model echoes the last transcript line back as the overview
	client := &fakeModelClient{respond: func(prompt string) (string, error) {
		lines := strings.Split(strings.TrimSpace(prompt), "\n")
		overview := lines[len(lines)-1]
		return wrapEnvelope(t, fmt.Sprintf(`{"overview":%q}`, overview)), nil
	}}
	repo := &fakeSummaryRepo{}
	svc := newTestService(t, client, repo, nil)

	const n = 16
	results := make([]*entities.MeetingSummary, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := svc.GenerateAndStore(context.Background(), fmt.Sprintf("meeting number %d", i))
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	require.Len(t, repo.saved, n)
	publicIDs := map[string]bool{}
	for i, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, fmt.Sprintf("meeting number %d", i), got.OriginalTranscript)
		assert.Equal(t, fmt.Sprintf("meeting number %d", i), got.Overview)
		publicIDs[got.PublicID] = true
	}
	assert.Len(t, publicIDs, n)
}

func TestGenerateStream_FiltersEmptyFragments(t *testing.T) {
	fragment := func(text string) string {
		return "data: " + wrapEnvelope(t, text)
	}
	client := &fakeModelClient{fragments: []string{
		fragment("Hel"),
		`{"usageMetadata":{"promptTokenCount":3}}`,
		"",
		fragment("lo, "),
		`{"candidates":[{"content":{"parts":[{"te`,
		fragment("world"),
	}}
	repo := &fakeSummaryRepo{}
	svc := newTestService(t, client, repo, nil)

	var chunks []string
	for chunk, err := range svc.GenerateStream(context.Background(), "transcript") {
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}

	assert.Equal(t, []string{"Hel", "lo, ", "world"}, chunks)
	assert.Empty(t, repo.saved)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "transcript")
}

func TestGenerateStream_LateFailureAfterDeliveredChunks(t *testing.T) {
	upstream := &usecaseErrors.UpstreamError{Op: "streamGenerateContent", Timeout: true, Err: context.DeadlineExceeded}
	client := &fakeModelClient{
		fragments: []string{"data: " + wrapEnvelope(t, "one"), "data: " + wrapEnvelope(t, "two")},
		streamErr: upstream,
	}
	svc := newTestService(t, client, &fakeSummaryRepo{}, nil)

	var chunks []string
	var errs []error
	for chunk, err := range svc.GenerateStream(context.Background(), "transcript") {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		assert.Empty(t, errs, "no chunk may follow the error")
		chunks = append(chunks, chunk)
	}

	assert.Equal(t, []string{"one", "two"}, chunks)
	require.Len(t, errs, 1)
	assert.Same(t, upstream, errs[0])
}

func TestGenerateStream_ConsumerStopsEarly(t *testing.T) {
	client := &fakeModelClient{fragments: []string{
		"data: " + wrapEnvelope(t, "a"),
		"data: " + wrapEnvelope(t, "b"),
		"data: " + wrapEnvelope(t, "c"),
	}}
	svc := newTestService(t, client, &fakeSummaryRepo{}, nil)

	for chunk, err := range svc.GenerateStream(context.Background(), "transcript") {
		require.NoError(t, err)
		assert.Equal(t, "a", chunk)
		break
	}
	assert.Equal(t, 1, client.pulled)
}

func TestGenerateStream_BlankTranscript(t *testing.T) {
	svc := newTestService(t, &fakeModelClient{}, &fakeSummaryRepo{}, nil)

	var errs []error
	for _, err := range svc.GenerateStream(context.Background(), "") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], usecaseErrors.ErrInvalidInput)
}

func TestReadOperations(t *testing.T) {
	client := &fakeModelClient{respond: func(string) (string, error) {
		return wrapEnvelope(t, roadmapText), nil
	}}
	repo := &fakeSummaryRepo{}
	svc := newTestService(t, client, repo, nil)
	ctx := context.Background()

	first, err := svc.GenerateAndStore(ctx, "first meeting")
	require.NoError(t, err)
	second, err := svc.GenerateAndStore(ctx, "second meeting")
	require.NoError(t, err)

	all, err := svc.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	got, err := svc.GetSummary(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.PublicID, got.PublicID)

	got, err = svc.GetSummaryByPublicID(ctx, second.PublicID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = svc.GetSummary(ctx, "missing")
	assert.ErrorIs(t, err, usecaseErrors.ErrSummaryNotFound)
	_, err = svc.GetSummaryByPublicID(ctx, "missing")
	assert.ErrorIs(t, err, usecaseErrors.ErrSummaryNotFound)
}

func TestReadOperations_StoreFailure(t *testing.T) {
	repo := &fakeSummaryRepo{findErr: errors.New("timeout")}
	svc := newTestService(t, &fakeModelClient{}, repo, nil)
	ctx := context.Background()

	list, err := svc.ListSummaries(ctx)
	assert.Nil(t, list)
	assert.ErrorIs(t, err, usecaseErrors.ErrPersistence)

	_, err = svc.GetSummary(ctx, "x")
	assert.ErrorIs(t, err, usecaseErrors.ErrPersistence)
	_, err = svc.GetSummaryByPublicID(ctx, "x")
	assert.ErrorIs(t, err, usecaseErrors.ErrPersistence)
}

func TestListSummaries_EmptyStore(t *testing.T) {
	svc := newTestService(t, &fakeModelClient{}, &fakeSummaryRepo{}, nil)

	list, err := svc.ListSummaries(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestShutdown_NoPendingWork(t *testing.T) {
	svc := newTestService(t, &fakeModelClient{}, &fakeSummaryRepo{}, nil)
	assert.NoError(t, svc.Shutdown(context.Background()))
}

func TestGenerateAndStore_NoArchiveAfterShutdown(t *testing.T) {
	raw := wrapEnvelope(t, "no json here")
	client := &fakeModelClient{respond: func(string) (string, error) { return raw, nil }}
	archiver := newFakeArchiver()
	svc := newTestService(t, client, &fakeSummaryRepo{}, archiver)

	require.NoError(t, svc.Shutdown(context.Background()))

	_, err := svc.GenerateAndStore(context.Background(), "transcript")
	requireParseError(t, err)

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	assert.Empty(t, archiver.objects)
}

func TestShutdown_ConcurrentWithFailingRequests(t *testing.T) {
	raw := wrapEnvelope(t, "no json here")
	client := &fakeModelClient{respond: func(string) (string, error) { return raw, nil }}
	archiver := &fakeArchiver{objects: map[string]string{}, done: make(chan struct{}, 64)}
	svc := newTestService(t, client, &fakeSummaryRepo{}, archiver)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GenerateAndStore(context.Background(), "transcript")
			assert.ErrorIs(t, err, usecaseErrors.ErrParse)
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
	wg.Wait()

	// uploads accepted before Shutdown finished; later ones were skipped
	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	assert.LessOrEqual(t, len(archiver.objects), 32)
}
