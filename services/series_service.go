package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"series-tracker/logging"
	"series-tracker/metrics"
	"series-tracker/models"
	"series-tracker/store"
)

// SeriesService handles series operations for signed-in users.
// Every collection is private to its owner.
type SeriesService struct {
	docs   store.DocumentStore
	logger zerolog.Logger
}

// NewSeriesService creates a new series service
func NewSeriesService(docs store.DocumentStore) *SeriesService {
	return &SeriesService{
		docs:   docs,
		logger: logging.WithComponent("series"),
	}
}

// scoped returns the storage collection for an owner's collection
func scoped(owner, collection string) string {
	return owner + "/" + collection
}

// List returns every series in the collection
func (s *SeriesService) List(ctx context.Context, owner, collection string) ([]models.Series, error) {
	list, err := s.docs.FetchAll(ctx, scoped(owner, collection))
	metrics.RecordDocumentOp("fetch", err)
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner).Str("collection", collection).Msg("List: fetch failed")
		return nil, fmt.Errorf("failed to list series: %w", err)
	}

	s.logger.Debug().Str("owner", owner).Str("collection", collection).Int("count", len(list)).Msg("List: fetched series")
	return list, nil
}

// Get returns one series
func (s *SeriesService) Get(ctx context.Context, owner, collection, id string) (models.Series, error) {
	item, err := s.docs.Get(ctx, scoped(owner, collection), id)
	metrics.RecordDocumentOp("get", err)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error().Err(err).Str("owner", owner).Str("id", id).Msg("Get: lookup failed")
		}
		return models.Series{}, fmt.Errorf("failed to get series: %w", err)
	}
	return item, nil
}

// Create normalizes and stores a new series, returning it with its id
func (s *SeriesService) Create(ctx context.Context, owner, collection string, in models.SeriesInput) (models.Series, error) {
	in = models.NewSeriesInput(in.Name, in.EpisodeCount, in.ImageURL)
	if err := in.Validate(); err != nil {
		return models.Series{}, err
	}

	created, err := s.docs.Insert(ctx, scoped(owner, collection), in)
	metrics.RecordDocumentOp("insert", err)
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner).Msg("Create: insert failed")
		return models.Series{}, fmt.Errorf("failed to create series: %w", err)
	}

	s.logger.Info().Str("owner", owner).Str("id", created.ID).Str("name", created.Name).Msg("Create: series stored")
	return created, nil
}

// Update overwrites the whole series stored under id
func (s *SeriesService) Update(ctx context.Context, owner, collection, id string, item models.Series) error {
	if id == "" {
		return models.InvalidInput("id is required")
	}
	item.ID = id
	item = item.Normalize()
	if err := item.Input().Validate(); err != nil {
		return err
	}

	err := s.docs.Update(ctx, scoped(owner, collection), id, item)
	metrics.RecordDocumentOp("update", err)
	if err != nil {
		s.logger.Info().Err(err).Str("owner", owner).Str("id", id).Msg("Update: failed")
		return fmt.Errorf("failed to update series: %w", err)
	}

	s.logger.Info().Str("owner", owner).Str("id", id).Msg("Update: series replaced")
	return nil
}

// Delete removes the series. Deleting an id that does not exist succeeds.
func (s *SeriesService) Delete(ctx context.Context, owner, collection, id string) error {
	if id == "" {
		return models.InvalidInput("id is required")
	}

	err := s.docs.Delete(ctx, scoped(owner, collection), id)
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Debug().Str("owner", owner).Str("id", id).Msg("Delete: nothing to delete")
		err = nil
	}
	metrics.RecordDocumentOp("delete", err)
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner).Str("id", id).Msg("Delete: failed")
		return fmt.Errorf("failed to delete series: %w", err)
	}

	s.logger.Info().Str("owner", owner).Str("id", id).Msg("Delete: series removed")
	return nil
}
