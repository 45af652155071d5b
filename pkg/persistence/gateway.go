// Package persistence saves and restores a restartable snapshot of the
// adventure and keeps the durable image-disable flag.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/state"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

const (
	// Namespace prefixes every snapshot key.
	Namespace = "text-adventure:snapshot"
	// ImageFlagNamespace prefixes the durable image-disable flag. It is not
	// touched by Clear.
	ImageFlagNamespace = "text-adventure:image-generation-disabled"

	DefaultProfile = "default"
)

// Gateway reads and writes snapshots for one profile.
type Gateway struct {
	store   storage.Storage
	key     string
	flagKey string
	logger  *slog.Logger
	now     func() time.Time
}

// NewGateway creates a gateway for profile (DefaultProfile when empty).
func NewGateway(store storage.Storage, profile string, logger *slog.Logger) *Gateway {
	if profile == "" {
		profile = DefaultProfile
	}
	return &Gateway{
		store:   store,
		key:     Namespace + ":" + profile,
		flagKey: ImageFlagNamespace + ":" + profile,
		logger:  logger,
		now:     time.Now,
	}
}

// Key returns the snapshot key used by this gateway.
func (g *Gateway) Key() string {
	return g.key
}

// Eligible reports whether gs may be saved: the adventure is fully set up,
// nothing narrative is being generated or examined, and it has not ended.
func Eligible(gs *state.GameState) bool {
	if gs == nil {
		return false
	}
	return gs.Selection.Complete() &&
		gs.Outline != nil &&
		gs.World != nil &&
		gs.CurrentSegment != nil &&
		!gs.NarrativeBusy() &&
		!gs.Ended()
}

// Save writes a snapshot when gs is eligible and reports whether it did.
func (g *Gateway) Save(ctx context.Context, gs *state.GameState) (bool, error) {
	if !Eligible(gs) {
		return false, nil
	}
	snap := gs.ToSnapshot(g.now().UTC())
	normalize(&snap)

	data, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := g.store.SaveSnapshot(ctx, g.key, data); err != nil {
		return false, fmt.Errorf("failed to save snapshot: %w", err)
	}
	g.logger.Debug("snapshot saved", "key", g.key, "bytes", len(data))
	return true, nil
}

// Load returns the stored snapshot, or nil when there is nothing to resume.
// A snapshot that fails validation is deleted and reported as nil so the
// caller starts fresh.
func (g *Gateway) Load(ctx context.Context) (*state.Snapshot, error) {
	data, err := g.store.LoadSnapshot(ctx, g.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	if err := Validate(data); err != nil {
		g.logger.Warn("discarding invalid snapshot", "key", g.key, "error", err)
		return nil, g.discard(ctx)
	}

	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		g.logger.Warn("discarding undecodable snapshot", "key", g.key, "error", err)
		return nil, g.discard(ctx)
	}
	return &snap, nil
}

// Clear removes the snapshot. The image-disable flag is kept.
func (g *Gateway) Clear(ctx context.Context) error {
	if err := g.store.DeleteSnapshot(ctx, g.key); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return nil
}

// DisableImages records that image generation is permanently disabled.
func (g *Gateway) DisableImages(ctx context.Context) error {
	if err := g.store.SetFlag(ctx, g.flagKey, true); err != nil {
		return fmt.Errorf("failed to persist image flag: %w", err)
	}
	return nil
}

// ImagesDisabled reads the durable image-disable flag.
func (g *Gateway) ImagesDisabled(ctx context.Context) (bool, error) {
	v, err := g.store.GetFlag(ctx, g.flagKey)
	if err != nil {
		return false, fmt.Errorf("failed to read image flag: %w", err)
	}
	return v, nil
}

func (g *Gateway) discard(ctx context.Context) error {
	if err := g.store.DeleteSnapshot(ctx, g.key); err != nil {
		return fmt.Errorf("failed to delete invalid snapshot: %w", err)
	}
	return nil
}

// normalize replaces nil lists with empty ones so they serialize as arrays.
func normalize(snap *state.Snapshot) {
	if snap.Inventory == nil {
		snap.Inventory = []state.InventoryItem{}
	}
	if snap.Journal == nil {
		snap.Journal = []state.JournalEntry{}
	}
	if w := snap.WorldDetails; w != nil {
		c := *w
		for _, l := range []*[]string{&c.KeyEnvironmentalFeatures, &c.DominantSocietiesOrFactions, &c.UniqueCreaturesOrMonsters, &c.CulturalNormsOrTaboos} {
			if *l == nil {
				*l = []string{}
			}
		}
		snap.WorldDetails = &c
	}
	if seg := snap.CurrentSegment; seg != nil && seg.Choices == nil {
		seg.Choices = []adventure.Choice{}
	}
}
