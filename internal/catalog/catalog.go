// Package catalog resolves user-facing batch names into batch definitions
// served by the Lenz catalog API: which datasets belong to a batch, their
// execution sequence, and the valid slices per dataset. Responses are cached
// in memory with a short TTL so repeated turns in one conversation do not
// hammer the API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/batchwatch-poc/server/internal/agent/model"
	errx "github.com/batchwatch-poc/server/internal/core/error"
	logx "github.com/batchwatch-poc/server/pkg/logger"
)

// Fetcher retrieves the raw catalog payload for one essential name. The
// production implementation is HTTPFetcher; tests inject their own.
type Fetcher interface {
	Fetch(ctx context.Context, essentialName string) ([]byte, error)
}

type cacheEntry struct {
	def     *model.BatchDefinition
	fetched time.Time
}

// Client resolves and caches batch definitions. Safe for concurrent use.
type Client struct {
	fetcher Fetcher
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewClient(fetcher Fetcher, ttl time.Duration) (*Client, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("catalog: fetcher must not be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		fetcher: fetcher,
		ttl:     ttl,
		cache:   map[string]cacheEntry{},
	}, nil
}

// Definition resolves a user-facing batch name (for example "DERIV", "6G",
// "snu") and fetches its definition.
func (c *Client) Definition(ctx context.Context, name string) (*model.BatchDefinition, error) {
	essentialName := ResolveEssentialName(name)
	if essentialName == "" {
		return nil, errx.NotFound(fmt.Sprintf(
			"Unknown batch '%s'. Valid names: %s", name, strings.Join(KnownAliases(), ", ")))
	}

	if def := c.cacheGet(essentialName); def != nil {
		logx.Debug().Str("essential", essentialName).Msg("Catalog cache hit")
		return def, nil
	}

	logx.Info().Str("essential", essentialName).Msg("Fetching catalog definition")
	raw, err := c.fetcher.Fetch(ctx, essentialName)
	if err != nil {
		return nil, errx.WrapCatalog(err)
	}
	def, err := parsePayload(raw, essentialName)
	if err != nil {
		return nil, err
	}

	c.cacheSet(essentialName, def)
	return def, nil
}

// ValidSlices returns all valid slice names for one dataset of a batch.
func (c *Client) ValidSlices(ctx context.Context, name, datasetID string) ([]string, error) {
	def, err := c.Definition(ctx, name)
	if err != nil {
		return nil, err
	}
	ds := def.Dataset(datasetID)
	if ds == nil {
		return nil, nil
	}
	return ds.AllSlices(), nil
}

// Invalidate clears the cache entry for one essential, or the whole cache
// when name is empty.
func (c *Client) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		c.cache = map[string]cacheEntry{}
		return
	}
	if essential := ResolveEssentialName(name); essential != "" {
		delete(c.cache, essential)
	}
}

// Prefetch warms the cache for every known essential. Individual failures
// are logged and skipped, so one unreachable definition never blocks
// startup.
func (c *Client) Prefetch(ctx context.Context) {
	for _, essentialName := range essentialNames() {
		raw, err := c.fetcher.Fetch(ctx, essentialName)
		if err != nil {
			logx.Warn().Err(err).Str("essential", essentialName).Msg("Prefetch failed")
			continue
		}
		def, err := parsePayload(raw, essentialName)
		if err != nil {
			logx.Warn().Err(err).Str("essential", essentialName).Msg("Prefetch parse failed")
			continue
		}
		c.cacheSet(essentialName, def)
		logx.Info().
			Str("essential", essentialName).
			Int("datasets", len(def.Datasets)).
			Msg("Prefetched catalog definition")
	}
}

func (c *Client) cacheGet(essentialName string) *model.BatchDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[essentialName]
	if !ok || time.Since(entry.fetched) >= c.ttl {
		return nil
	}
	return entry.def
}

func (c *Client) cacheSet(essentialName string, def *model.BatchDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[essentialName] = cacheEntry{def: def, fetched: time.Now()}
}

// catalogPayload mirrors the nested Lenz response shape:
//
//	{"GLOBAL": {"<essential>": {"essentialName": ..., "displayName": ...,
//	  "context": ..., "schemaJson": {"datasets": [...]}}}}
type catalogPayload struct {
	Global map[string]essentialPayload `json:"GLOBAL"`
}

type essentialPayload struct {
	EssentialName string        `json:"essentialName"`
	DisplayName   string        `json:"displayName"`
	Context       string        `json:"context"`
	SchemaJSON    schemaPayload `json:"schemaJson"`
}

type schemaPayload struct {
	Datasets []datasetPayload `json:"datasets"`
}

type datasetPayload struct {
	DatasetID     string                     `json:"datasetId"`
	SequenceOrder int                        `json:"sequenceOrder"`
	SliceGroups   map[string]json.RawMessage `json:"sliceGroups"`
}

// parsePayload converts the raw catalog response into a BatchDefinition.
// The sliceGroups value comes in three shapes: a flat {"slices": [...]}
// group, named groups like {"DERIV": [...]}, or no sliceGroups key at all.
// Group values that are not string arrays are skipped.
func parsePayload(raw []byte, essentialName string) (*model.BatchDefinition, error) {
	var payload catalogPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errx.WrapCatalog(fmt.Errorf("decode catalog response: %w", err))
	}

	essential, ok := payload.Global[essentialName]
	if !ok {
		return nil, errx.NotFound(fmt.Sprintf("Essential '%s' not found in catalog response", essentialName))
	}

	datasets := make([]model.DatasetDef, 0, len(essential.SchemaJSON.Datasets))
	for _, d := range essential.SchemaJSON.Datasets {
		ds := model.DatasetDef{
			DatasetID:     d.DatasetID,
			SequenceOrder: d.SequenceOrder,
		}
		for _, groupName := range sortedKeys(d.SliceGroups) {
			var slices []string
			if err := json.Unmarshal(d.SliceGroups[groupName], &slices); err != nil || len(slices) == 0 {
				continue
			}
			ds.SliceGroups = append(ds.SliceGroups, model.SliceGroup{Name: groupName, Slices: slices})
		}
		datasets = append(datasets, ds)
	}
	sort.SliceStable(datasets, func(i, j int) bool {
		return datasets[i].SequenceOrder < datasets[j].SequenceOrder
	})

	def := &model.BatchDefinition{
		EssentialName: essential.EssentialName,
		DisplayName:   essential.DisplayName,
		Context:       essential.Context,
		Datasets:      datasets,
	}
	if def.EssentialName == "" {
		def.EssentialName = essentialName
	}
	if def.DisplayName == "" {
		def.DisplayName = essentialName
	}
	if def.Context == "" {
		def.Context = "GLOBAL"
	}
	return def, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
