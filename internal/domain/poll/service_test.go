package poll

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type memoryPollRepo struct {
	mu           sync.Mutex
	polls        map[int64]*Poll
	opts         map[int64][]Option
	nextID       int64
	nextOptionID int64
	failCreate   error
}

func newMemoryPollRepo() *memoryPollRepo {
	return &memoryPollRepo{
		polls:        make(map[int64]*Poll),
		opts:         make(map[int64][]Option),
		nextID:       1,
		nextOptionID: 1,
	}
}

func (r *memoryPollRepo) Create(ctx context.Context, p *Poll, options []Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	copyPoll := *p
	r.polls[p.ID] = &copyPoll

	cloned := make([]Option, len(options))
	for i := range options {
		options[i].ID = r.nextOptionID
		r.nextOptionID++
		options[i].PollID = p.ID
		options[i].CreatedAt = p.CreatedAt
		cloned[i] = options[i]
	}
	r.opts[p.ID] = cloned
	return nil
}

func (r *memoryPollRepo) GetByID(ctx context.Context, id int64) (*Poll, []Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, nil, ErrPollNotFound
	}
	opts := r.opts[id]
	copyPoll := *p
	copiedOpts := make([]Option, len(opts))
	copy(copiedOpts, opts)
	return &copyPoll, copiedOpts, nil
}

func (r *memoryPollRepo) List(ctx context.Context) ([]Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []Poll{}
	for _, p := range r.polls {
		res = append(res, *p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (r *memoryPollRepo) Delete(ctx context.Context, id, authorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return ErrPollNotFound
	}
	if p.AuthorID != authorID {
		return ErrNotOwner
	}
	delete(r.polls, id)
	delete(r.opts, id)
	return nil
}

func TestPollValidation(t *testing.T) {
	repo := newMemoryPollRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cases := []struct {
		name     string
		question string
		options  []string
		want     error
	}{
		{"missing question", "  ", []string{"A", "B"}, ErrQuestionRequired},
		{"no options", "Q?", nil, ErrTooFewOptions},
		{"one option", "Q?", []string{"A"}, ErrTooFewOptions},
		{"blank option", "Q?", []string{"A", " "}, ErrEmptyOption},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Create(ctx, tc.question, tc.options, 1)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if len(repo.polls) != 0 {
		t.Fatalf("expected no polls persisted, got %d", len(repo.polls))
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := newMemoryPollRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, opts, err := svc.Create(ctx, " Best color? ", []string{"Red", "Blue", "Green"}, 1)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if p.Question != "Best color?" || p.AuthorID != 1 {
		t.Fatalf("unexpected poll %+v", p)
	}
	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %d", len(opts))
	}

	got, gotOpts, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("expected poll %d, got %d", p.ID, got.ID)
	}
	for i, o := range gotOpts {
		if o.PollID != p.ID || o.VoteCount != 0 || o.Text != opts[i].Text {
			t.Fatalf("unexpected option %+v", o)
		}
	}
}

func TestCreatePropagatesStoreError(t *testing.T) {
	repo := newMemoryPollRepo()
	repo.failCreate = errors.New("connection refused")
	svc := NewService(repo)

	_, _, err := svc.Create(context.Background(), "Q?", []string{"A", "B"}, 1)
	if err == nil || IsValidation(err) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestDeleteOwnership(t *testing.T) {
	repo := newMemoryPollRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, _, err := svc.Create(ctx, "Q?", []string{"A", "B"}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, p.ID, 2); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := svc.Delete(ctx, 999, 1); !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, p.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := svc.Get(ctx, p.ID); !errors.Is(err, ErrPollNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
