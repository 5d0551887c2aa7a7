// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
	"github.com/ManuGH/playreward/internal/log"
)

// AddRequest carries the raw fields of a reward definition. ID 0 asks the
// catalog to assign lastID+1.
type AddRequest struct {
	ID               model.RewardID
	Recurring        bool
	ThresholdSeconds int64
	MinLevel         int
	Items            string
	Reputations      string
}

func requestFromRecord(rec model.DefinitionRecord) AddRequest {
	return AddRequest{
		ID:               rec.ID,
		Recurring:        rec.Recurring,
		ThresholdSeconds: rec.ThresholdSeconds,
		MinLevel:         rec.MinLevel,
		Items:            rec.Items,
		Reputations:      rec.Reputations,
	}
}

// Catalog holds the validated reward definitions. It is not safe for
// concurrent use; Service serializes access.
type Catalog struct {
	store    ports.DefinitionStore
	items    ports.ItemCatalog
	factions ports.FactionCatalog
	logger   zerolog.Logger

	defs   map[model.RewardID]model.Definition
	order  []model.RewardID
	lastID model.RewardID
}

// NewCatalog creates an empty catalog backed by store.
func NewCatalog(store ports.DefinitionStore, items ports.ItemCatalog, factions ports.FactionCatalog) *Catalog {
	return &Catalog{
		store:    store,
		items:    items,
		factions: factions,
		logger:   log.WithComponent("reward.catalog"),
		defs:     make(map[model.RewardID]model.Definition),
	}
}

// Load replaces the catalog with the persisted rows. Rows failing validation
// are skipped. It returns model.ErrNoData when nothing valid remains.
func (c *Catalog) Load(ctx context.Context) (int, error) {
	recs, err := c.store.ListDefinitions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reward definitions: %w", err)
	}

	loaded := make([]model.Definition, 0, len(recs))
	for _, rec := range recs {
		def, err := c.build(ctx, requestFromRecord(rec))
		if err != nil {
			if isValidationError(err) {
				c.logger.Warn().Err(err).Uint32(log.FieldRewardID, uint32(rec.ID)).Msg("skipping invalid reward definition")
				continue
			}
			return 0, err
		}
		loaded = append(loaded, def)
	}

	c.defs = make(map[model.RewardID]model.Definition, len(loaded))
	c.order = c.order[:0]
	c.lastID = 0
	for _, def := range loaded {
		c.install(def)
	}

	if len(c.defs) == 0 {
		return 0, model.ErrNoData
	}
	c.logger.Info().Int("count", len(c.defs)).Msg("loaded online rewards")
	return len(c.defs), nil
}

// Add validates req, persists it and installs it.
func (c *Catalog) Add(ctx context.Context, req AddRequest) (model.Definition, error) {
	if req.ID == 0 {
		req.ID = c.lastID + 1
	}
	if _, exists := c.defs[req.ID]; exists {
		return model.Definition{}, fmt.Errorf("reward %d: %w", req.ID, model.ErrDuplicateID)
	}

	def, err := c.build(ctx, req)
	if err != nil {
		return model.Definition{}, err
	}
	if err := c.store.InsertDefinition(ctx, def.Record()); err != nil {
		return model.Definition{}, fmt.Errorf("persist reward %d: %w", def.ID, err)
	}
	c.install(def)
	return def, nil
}

// Delete removes a reward from storage and memory.
func (c *Catalog) Delete(ctx context.Context, id model.RewardID) error {
	if _, ok := c.defs[id]; !ok {
		return fmt.Errorf("reward %d: %w", id, model.ErrNotFound)
	}
	if _, err := c.store.DeleteDefinition(ctx, id); err != nil {
		return fmt.Errorf("delete reward %d: %w", id, err)
	}
	delete(c.defs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the definition with id.
func (c *Catalog) Get(id model.RewardID) (model.Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// List returns the definitions in insertion order.
func (c *Catalog) List() []model.Definition {
	out := make([]model.Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

func (c *Catalog) Len() int { return len(c.defs) }

// LastID is the highest installed id; auto-assigned ids continue from it.
func (c *Catalog) LastID() model.RewardID { return c.lastID }

func (c *Catalog) install(def model.Definition) {
	if _, exists := c.defs[def.ID]; !exists {
		c.order = append(c.order, def.ID)
	}
	c.defs[def.ID] = def
	if def.ID > c.lastID {
		c.lastID = def.ID
	}
}

// build turns a request into a definition. Per-entry payload problems are
// logged and skipped; only lookup transport failures and the
// whole-definition checks are returned.
func (c *Catalog) build(ctx context.Context, req AddRequest) (model.Definition, error) {
	if req.ThresholdSeconds <= 0 {
		return model.Definition{}, fmt.Errorf("reward %d: %w", req.ID, model.ErrInvalidThreshold)
	}
	if req.MinLevel < model.MinLevel || req.MinLevel > model.MaxLevel {
		return model.Definition{}, fmt.Errorf("reward %d: level %d: %w", req.ID, req.MinLevel, model.ErrInvalidLevel)
	}

	def := model.Definition{
		ID:        req.ID,
		Recurring: req.Recurring,
		Threshold: time.Duration(req.ThresholdSeconds) * time.Second,
		MinLevel:  uint8(req.MinLevel),
	}

	itemPairs, errs := model.ParsePairs(req.Items)
	c.warnAll(req.ID, errs)
	for _, p := range itemPairs {
		if _, err := c.items.ItemTemplate(ctx, p.ID); err != nil {
			if !isValidationError(err) {
				return model.Definition{}, fmt.Errorf("lookup item %d: %w", p.ID, err)
			}
			c.warnAll(req.ID, []error{fmt.Errorf("item %d: %w", p.ID, err)})
			continue
		}
		def.Items = append(def.Items, model.ItemGrant{ItemID: p.ID, Count: p.Amount})
	}

	repPairs, errs := model.ParsePairs(req.Reputations)
	c.warnAll(req.ID, errs)
	for _, p := range repPairs {
		if err := c.checkFaction(ctx, p); err != nil {
			if !isValidationError(err) {
				return model.Definition{}, fmt.Errorf("lookup faction %d: %w", p.ID, err)
			}
			c.warnAll(req.ID, []error{err})
			continue
		}
		def.Reputations = append(def.Reputations, model.ReputationGrant{FactionID: p.ID, Amount: p.Amount})
	}

	if len(def.Items) == 0 && len(def.Reputations) == 0 {
		return model.Definition{}, fmt.Errorf("reward %d: %w", req.ID, model.ErrEmptyPayload)
	}
	return def, nil
}

func (c *Catalog) checkFaction(ctx context.Context, p model.Pair) error {
	f, err := c.factions.Faction(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("faction %d: %w", p.ID, err)
	}
	if !f.SupportsReputation() {
		return fmt.Errorf("faction %d: %w", p.ID, model.ErrNoReputation)
	}
	if p.Amount > model.ReputationCap {
		return fmt.Errorf("faction %d: amount %d > %d: %w", p.ID, p.Amount, model.ReputationCap, model.ErrReputationCap)
	}
	return nil
}

func (c *Catalog) warnAll(id model.RewardID, errs []error) {
	for _, err := range errs {
		c.logger.Warn().Err(err).Uint32(log.FieldRewardID, uint32(id)).Msg("skipping reward payload entry")
	}
}

// isValidationError reports whether err describes bad reward data rather than
// an unreachable collaborator.
func isValidationError(err error) bool {
	for _, target := range []error{
		model.ErrMalformedEntry,
		model.ErrUnknownItem,
		model.ErrUnknownFaction,
		model.ErrNoReputation,
		model.ErrReputationCap,
		model.ErrInvalidThreshold,
		model.ErrInvalidLevel,
		model.ErrEmptyPayload,
		model.ErrDuplicateID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
