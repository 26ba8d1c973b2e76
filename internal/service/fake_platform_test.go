package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/vilaca/conflict-marker/internal/domain"
)

var errNotFound = errors.New("not found")

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakePlatform is an in-memory api.Client.
// Each pull request has a sequence of mergeable states, one per list call;
// the last state repeats once the sequence is used up.
type fakePlatform struct {
	mu sync.Mutex

	marker  domain.Label
	authors map[int]string
	labels  map[int][]domain.Label
	signals map[int][]domain.MergeableState

	listCalls int
	listErr   error
	getErr    map[int]error
	labelErr  error

	commentErr  map[int]error
	addErr      map[int]error
	removeErr   map[int]error
	comments    map[int][]string
	addCalls    map[int]int
	removeCalls map[int]int
}

func newFakePlatform(marker domain.Label) *fakePlatform {
	return &fakePlatform{
		marker:      marker,
		authors:     make(map[int]string),
		labels:      make(map[int][]domain.Label),
		signals:     make(map[int][]domain.MergeableState),
		getErr:      make(map[int]error),
		commentErr:  make(map[int]error),
		addErr:      make(map[int]error),
		removeErr:   make(map[int]error),
		comments:    make(map[int][]string),
		addCalls:    make(map[int]int),
		removeCalls: make(map[int]int),
	}
}

func (f *fakePlatform) addPR(number int, author string, labels []domain.Label, signals ...domain.MergeableState) {
	f.authors[number] = author
	f.labels[number] = labels
	f.signals[number] = signals
}

func (f *fakePlatform) numbers() []int {
	numbers := make([]int, 0, len(f.signals))
	for n := range f.signals {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

func (f *fakePlatform) ListOpenPullRequests(ctx context.Context) ([]domain.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}

	prs := make([]domain.PullRequest, 0, len(f.signals))
	for _, n := range f.numbers() {
		// list items carry no mergeability signal
		prs = append(prs, domain.PullRequest{Number: n, Author: f.authors[n], Labels: f.labels[n]})
	}
	return prs, nil
}

func (f *fakePlatform) GetPullRequest(ctx context.Context, number int) (*domain.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.getErr[number]; err != nil {
		return nil, err
	}
	signals, ok := f.signals[number]
	if !ok {
		return nil, errNotFound
	}
	idx := f.listCalls - 1
	if idx >= len(signals) {
		idx = len(signals) - 1
	}

	labels := make([]domain.Label, len(f.labels[number]))
	copy(labels, f.labels[number])
	return &domain.PullRequest{
		Number:         number,
		Author:         f.authors[number],
		Labels:         labels,
		MergeableState: signals[idx],
	}, nil
}

func (f *fakePlatform) GetLabel(ctx context.Context, name string) (*domain.Label, error) {
	if f.labelErr != nil {
		return nil, f.labelErr
	}
	if name != f.marker.Name {
		return nil, errNotFound
	}
	label := f.marker
	return &label, nil
}

func (f *fakePlatform) CreateComment(ctx context.Context, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.comments[number] = append(f.comments[number], body)
	return f.commentErr[number]
}

func (f *fakePlatform) AddLabel(ctx context.Context, number int, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.addCalls[number]++
	if err := f.addErr[number]; err != nil {
		return err
	}
	f.labels[number] = append(f.labels[number], domain.Label{ID: f.marker.ID, Name: name})
	return nil
}

func (f *fakePlatform) RemoveLabel(ctx context.Context, number int, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removeCalls[number]++
	if err := f.removeErr[number]; err != nil {
		return err
	}
	kept := f.labels[number][:0:0]
	for _, l := range f.labels[number] {
		if l.Name != name {
			kept = append(kept, l)
		}
	}
	f.labels[number] = kept
	return nil
}

func (f *fakePlatform) totalMutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, c := range f.comments {
		total += len(c)
	}
	for _, n := range f.addCalls {
		total += n
	}
	for _, n := range f.removeCalls {
		total += n
	}
	return total
}

func prNumbers(prs []domain.PullRequest) []int {
	out := make([]int, 0, len(prs))
	for _, pr := range prs {
		out = append(out, pr.Number)
	}
	return out
}
