package services

import (
	"context"
	"fmt"
	"strings"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/storage"
)

type SplitSettingsService struct {
	store  storage.Store
	events notifier
}

func NewSplitSettingsService(store storage.Store, events EventPublisher, opts ...Option) *SplitSettingsService {
	o := buildOptions(log.ComponentApp, opts)
	return &SplitSettingsService{
		store:  store,
		events: notifier{events: events, logger: o.logger},
	}
}

// Get returns the split, creating the default one on first read.
func (s *SplitSettingsService) Get(ctx context.Context) (core.SplitSettings, error) {
	out, err := s.store.GetSplitSettings(ctx)
	if err != nil {
		return core.SplitSettings{}, fmt.Errorf("get split settings: %w", err)
	}
	return out, nil
}

// Update replaces the split. Percentages must be in range and add up to 100.
func (s *SplitSettingsService) Update(ctx context.Context, in core.SplitSettings) (core.SplitSettings, error) {
	in.User1Name = strings.TrimSpace(in.User1Name)
	in.User2Name = strings.TrimSpace(in.User2Name)
	if err := in.Validate(); err != nil {
		return core.SplitSettings{}, err
	}
	out, err := s.store.UpdateSplitSettings(ctx, in)
	if err != nil {
		return core.SplitSettings{}, fmt.Errorf("update split settings: %w", err)
	}
	s.events.notify(ctx, amqp.NewChangeEvent(amqp.EventSplitChanged))
	return out, nil
}
