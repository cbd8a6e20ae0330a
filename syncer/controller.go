// Package syncer keeps a local copy of a series collection in step with the
// remote store.
//
// A Controller owns the list together with its Loading and Error flags.
// Writes are applied locally only after the store confirms them, and each
// confirmation is merged by id instead of re-fetching the collection, so
// completions of independent operations may arrive in any order. Refreshes
// are numbered; a fetch that finishes after a newer refresh started is
// dropped.
//
// Operations block until the remote call returns and report whether their
// result was applied. Failures only ever show up in State; no error is
// returned to the caller.
package syncer

import (
	"context"
	"errors"
	"net"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"series-tracker/logging"
	"series-tracker/models"
)

// ErrorKind classifies the last failure
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindValidation ErrorKind = "validation"
	KindPermission ErrorKind = "permission"
	KindNotFound   ErrorKind = "not_found"
	KindTransient  ErrorKind = "transient"
	KindUnknown    ErrorKind = "unknown"
)

// State is what the presentation layer renders
type State struct {
	Series  []models.Series
	Loading bool
	Error   bool
	// Failure is set together with Error and says what kind of call failed.
	Failure ErrorKind
}

func (s State) clone() State {
	s.Series = slices.Clone(s.Series)
	if s.Series == nil {
		s.Series = []models.Series{}
	}
	return s
}

// RemoteStore is the document store the controller mirrors
type RemoteStore interface {
	FetchAll(ctx context.Context, collection string) ([]models.Series, error)
	Insert(ctx context.Context, collection string, in models.SeriesInput) (models.Series, error)
	Update(ctx context.Context, collection, id string, s models.Series) error
	Delete(ctx context.Context, collection, id string) error
}

// Controller mirrors one collection of the remote store
type Controller struct {
	remote     RemoteStore
	collection string
	logger     zerolog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	subs       map[*Subscription]struct{}
	closed     bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a controller for collection and starts loading it in the
// background. Close stops the initial load if it is still running.
func New(ctx context.Context, remote RemoteStore, collection string) *Controller {
	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		remote:     remote,
		collection: collection,
		logger:     logging.WithComponent("syncer").With().Str("collection", collection).Logger(),
		state:      State{Series: []models.Series{}, Loading: true},
		subs:       make(map[*Subscription]struct{}),
		cancel:     cancel,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Refresh(ctx)
	}()
	return c
}

// Close cancels background work, waits for it and closes every subscription
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for sub := range c.subs {
		delete(c.subs, sub)
		close(sub.ch)
	}
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Refresh replaces the list with the store's contents. It returns false
// when the fetch failed or was overtaken by a newer refresh.
func (c *Controller) Refresh(ctx context.Context) bool {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state.Loading = true
	c.state.Error = false
	c.state.Failure = KindNone
	c.publishLocked()
	c.mu.Unlock()

	list, err := c.remote.FetchAll(ctx, c.collection)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug().Uint64("generation", gen).Msg("Refresh: dropping superseded result")
		return false
	}
	c.state.Loading = false
	if err != nil {
		c.failLocked("refresh", err)
		return false
	}

	c.state.Series = dedupe(list)
	c.state.Error = false
	c.state.Failure = KindNone
	c.logger.Debug().Int("count", len(c.state.Series)).Msg("Refresh: list replaced")
	c.publishLocked()
	return true
}

// Create stores a new series and appends the stored record. Blank image
// URLs get the placeholder and negative episode counts become 0.
func (c *Controller) Create(ctx context.Context, name string, episodeCount int, imageURL string) (models.Series, bool) {
	in := models.NewSeriesInput(name, episodeCount, imageURL)
	if err := in.Validate(); err != nil {
		c.fail("create", err)
		return models.Series{}, false
	}

	created, err := c.remote.Insert(ctx, c.collection, in)
	if err != nil {
		c.fail("create", err)
		return models.Series{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// a refresh that finished first may already hold the record
	if i := c.indexLocked(created.ID); i >= 0 {
		c.state.Series[i] = created
	} else {
		c.state.Series = append(c.state.Series, created)
	}
	c.logger.Info().Str("id", created.ID).Str("name", created.Name).Msg("Create: series added")
	c.publishLocked()
	return created, true
}

// Update overwrites the stored series with s and replaces the local copy
// that has the same id. s.ID must be set.
func (c *Controller) Update(ctx context.Context, s models.Series) bool {
	if s.ID == "" {
		c.fail("update", models.InvalidInput("series has no id"))
		return false
	}
	s = s.Normalize()
	if err := s.Input().Validate(); err != nil {
		c.fail("update", err)
		return false
	}

	if err := c.remote.Update(ctx, c.collection, s.ID, s); err != nil {
		c.fail("update", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(s.ID); i >= 0 {
		c.state.Series[i] = s
	}
	c.logger.Info().Str("id", s.ID).Msg("Update: series replaced")
	c.publishLocked()
	return true
}

// Delete removes the stored series with s.ID and drops it from the list.
// A record the store no longer has counts as deleted.
func (c *Controller) Delete(ctx context.Context, s models.Series) bool {
	if s.ID == "" {
		c.fail("delete", models.InvalidInput("series has no id"))
		return false
	}

	if err := c.remote.Delete(ctx, c.collection, s.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		c.fail("delete", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Series = slices.DeleteFunc(c.state.Series, func(item models.Series) bool {
		return item.ID == s.ID
	})
	c.logger.Info().Str("id", s.ID).Msg("Delete: series removed")
	c.publishLocked()
	return true
}

func (c *Controller) indexLocked(id string) int {
	return slices.IndexFunc(c.state.Series, func(item models.Series) bool {
		return item.ID == id
	})
}

func (c *Controller) fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failLocked(op, err)
}

func (c *Controller) failLocked(op string, err error) {
	kind := Classify(err)
	c.state.Error = true
	c.state.Failure = kind
	c.logger.Warn().Err(err).Str("op", op).Str("kind", string(kind)).Msg("remote call failed")
	c.publishLocked()
}

// dedupe copies list keeping the last record for each id
func dedupe(list []models.Series) []models.Series {
	out := make([]models.Series, 0, len(list))
	seen := make(map[string]int, len(list))
	for _, s := range list {
		if i, ok := seen[s.ID]; ok && s.ID != "" {
			out[i] = s
			continue
		}
		seen[s.ID] = len(out)
		out = append(out, s)
	}
	return out
}

// Classify maps an error from the remote store to an ErrorKind
func Classify(err error) ErrorKind {
	var transient interface{ Transient() bool }
	var netErr net.Error

	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrConflict):
		return KindValidation
	case errors.Is(err, models.ErrUnauthorized):
		return KindPermission
	case errors.Is(err, models.ErrNotFound):
		return KindNotFound
	case errors.Is(err, models.ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTransient
	case errors.As(err, &transient) && transient.Transient():
		return KindTransient
	case errors.As(err, &netErr):
		return KindTransient
	default:
		return KindUnknown
	}
}
