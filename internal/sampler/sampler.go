// Package sampler selects distinct items from a tagged pool so that every tag
// quota is met exactly. An attempt walks the quotas in order and draws from the
// items still available; when a quota cannot be met the whole attempt is
// discarded and the sampler starts over with fresh randomness, up to a bound.
package sampler

// TagSet is an unordered set of tags.
type TagSet map[string]struct{}

// NewTagSet builds a set from the provided tags.
func NewTagSet(tags ...string) TagSet {
	set := make(TagSet, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Intersects reports whether the two sets share at least one tag.
func (s TagSet) Intersects(other TagSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for tag := range small {
		if large.Has(tag) {
			return true
		}
	}
	return false
}

// Pool is the ordered collection of items under consideration. An item's
// identifier is its index in the pool.
type Pool []TagSet

// Quota requires Count items carrying Tag.
type Quota struct {
	Tag   string
	Count int
}

// Selection lists chosen item identifiers. No identifier appears twice.
type Selection []int

// Chooser picks n distinct members of candidates. Implementations may
// reorder the returned identifiers freely but must not modify candidates.
type Chooser interface {
	Choose(candidates []int, n int) []int
}

// Observer is notified after every attempt with the attempt number (1-based)
// and nil on success or the *InfeasibleError that ended the attempt.
type Observer func(attempt int, err error)

// Option customizes a Sample call.
type Option func(*settings)

type settings struct {
	chooser  Chooser
	observer Observer
}

// WithChooser overrides the source of randomness.
func WithChooser(chooser Chooser) Option {
	return func(s *settings) {
		if chooser != nil {
			s.chooser = chooser
		}
	}
}

// WithObserver registers a callback that sees the outcome of every attempt.
func WithObserver(observer Observer) Option {
	return func(s *settings) {
		s.observer = observer
	}
}

// Sample draws a selection meeting every quota, in quota order, from the
// items of pool that carry none of the excluded tags. It makes at most
// maxTries attempts and returns an *ExhaustedError when none succeeds.
func Sample(pool Pool, quotas []Quota, excluded TagSet, maxTries int, opts ...Option) (Selection, error) {
	cfg := settings{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.chooser == nil {
		cfg.chooser = NewRandomChooser()
	}

	var last *InfeasibleError
	for attempt := 1; attempt <= maxTries; attempt++ {
		selection, err := runAttempt(pool, quotas, excluded, cfg.chooser)
		if err == nil {
			if cfg.observer != nil {
				cfg.observer(attempt, nil)
			}
			return selection, nil
		}
		err.Attempt = attempt
		if cfg.observer != nil {
			cfg.observer(attempt, err)
		}
		last = err
	}
	return nil, &ExhaustedError{MaxTries: maxTries, Last: last}
}

// runAttempt makes a single pass over the quotas starting from the full pool.
func runAttempt(pool Pool, quotas []Quota, excluded TagSet, chooser Chooser) (Selection, *InfeasibleError) {
	available := make([]bool, len(pool))
	for i := range available {
		available[i] = true
	}
	total := 0
	for _, q := range quotas {
		total += q.Count
	}
	selection := make(Selection, 0, total)

	for _, q := range quotas {
		eligible := eligibleItems(pool, available, q.Tag, excluded)
		if len(eligible) < q.Count {
			return nil, &InfeasibleError{Tag: q.Tag, Need: q.Count, Have: len(eligible)}
		}
		if q.Count <= 0 {
			continue
		}
		for _, id := range chooser.Choose(eligible, q.Count) {
			available[id] = false
			selection = append(selection, id)
		}
	}
	return selection, nil
}

func eligibleItems(pool Pool, available []bool, tag string, excluded TagSet) []int {
	var eligible []int
	for id, tags := range pool {
		if !available[id] || !tags.Has(tag) {
			continue
		}
		if tags.Intersects(excluded) {
			continue
		}
		eligible = append(eligible, id)
	}
	return eligible
}

// TagReport describes how many items could serve a quota on their own.
type TagReport struct {
	Quota    Quota
	Eligible int
}

// Short reports whether the quota exceeds its eligible items even before
// earlier quotas consume anything.
func (r TagReport) Short() bool {
	return r.Eligible < r.Quota.Count
}

// Feasibility counts eligible items per quota, in quota order, ignoring the
// consumption of earlier quotas. A short report guarantees every attempt
// fails; the converse does not hold when tags overlap.
func Feasibility(pool Pool, quotas []Quota, excluded TagSet) []TagReport {
	available := make([]bool, len(pool))
	for i := range available {
		available[i] = true
	}
	reports := make([]TagReport, 0, len(quotas))
	for _, q := range quotas {
		reports = append(reports, TagReport{
			Quota:    q,
			Eligible: len(eligibleItems(pool, available, q.Tag, excluded)),
		})
	}
	return reports
}
