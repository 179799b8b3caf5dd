package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jsamuelsen/esoteric-daily/internal/domain"
	"github.com/jsamuelsen/esoteric-daily/internal/platform/logging"
	"github.com/jsamuelsen/esoteric-daily/internal/ports"
)

// DefaultKeyPrefix is prepended to the date to form a storage key.
const DefaultKeyPrefix = "daily_esoteric_"

// Cache lookup results reported to the Recorder.
const (
	lookupHit     = "hit"
	lookupMiss    = "miss"
	lookupCorrupt = "corrupt"
	lookupError   = "error"
)

const lockStripes = 64

// storedRecord is the persisted JSON layout. Field names match what the
// browser build wrote to localStorage so existing data stays readable.
type storedRecord struct {
	Date            string       `json:"date"`
	Wisdom          storedWisdom `json:"wisdom"`
	ImageURL        string       `json:"imageUrl,omitempty"`
	FullExplanation string       `json:"fullExplanation,omitempty"`
}

type storedWisdom struct {
	Quote               string `json:"quote"`
	Source              string `json:"source"`
	Topic               string `json:"topic"`
	BriefInterpretation string `json:"briefInterpretation"`
}

// DailyCacheConfig holds dependencies for DailyCache.
type DailyCacheConfig struct {
	Store     ports.KeyValueStore
	KeyPrefix string
	Logger    *slog.Logger
	Recorder  Recorder
}

// DailyCache owns the persisted record for each date. Every read and write
// of a record goes through it. Operations on the same date are serialized;
// different dates proceed independently.
type DailyCache struct {
	store    ports.KeyValueStore
	prefix   string
	logger   *slog.Logger
	recorder Recorder
	stripes  [lockStripes]sync.Mutex
}

// NewDailyCache creates a cache over cfg.Store. It panics if Store is nil.
func NewDailyCache(cfg DailyCacheConfig) *DailyCache {
	if cfg.Store == nil {
		panic("app: DailyCache requires a store")
	}

	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}

	return &DailyCache{
		store:    cfg.Store,
		prefix:   cfg.KeyPrefix,
		logger:   cfg.Logger.With(slog.String("component", "daily_cache")),
		recorder: cfg.Recorder,
	}
}

// Key returns the storage key for date.
func (c *DailyCache) Key(date string) string {
	return c.prefix + date
}

// Get returns the record stored for date. A value that cannot be decoded,
// belongs to another date, or holds invalid wisdom is deleted and reported
// as absent. Storage read failures are also reported as absent.
func (c *DailyCache) Get(ctx context.Context, date string) (*domain.DailyRecord, bool) {
	unlock := c.lock(date)
	defer unlock()

	rec, err := c.load(ctx, date)
	switch {
	case err == nil:
		c.recorder.CacheLookup(lookupHit)
		return rec, true
	case domain.IsNotFound(err):
		c.recorder.CacheLookup(lookupMiss)
	case domain.IsCacheCorrupt(err):
		c.recorder.CacheLookup(lookupCorrupt)
		c.discard(ctx, date, err)
	default:
		c.recorder.CacheLookup(lookupError)
		c.log(ctx).WarnContext(ctx, "cache read failed, treating as miss",
			slog.String("date", date), slog.Any("error", err))
	}

	return nil, false
}

// Put validates rec and replaces whatever is stored for its date.
func (c *DailyCache) Put(ctx context.Context, rec *domain.DailyRecord) error {
	if rec == nil {
		return domain.NewValidationError("record", "must not be nil")
	}

	if err := rec.Validate(); err != nil {
		return err
	}

	unlock := c.lock(rec.Date)
	defer unlock()

	return c.save(ctx, rec)
}

// Merge fills empty derived fields of the stored record for date from patch
// and returns the result. A patch that changes nothing is not written.
// Merging into a date with no (valid) record returns a NotFoundError.
func (c *DailyCache) Merge(ctx context.Context, date string, patch domain.RecordPatch) (*domain.DailyRecord, error) {
	unlock := c.lock(date)
	defer unlock()

	rec, err := c.load(ctx, date)
	if err != nil {
		if domain.IsCacheCorrupt(err) {
			c.discard(ctx, date, err)
			return nil, domain.NewNotFoundError("daily record", date)
		}

		return nil, err
	}

	if !patch.Apply(rec) {
		return rec, nil
	}

	if err := c.save(ctx, rec); err != nil {
		return nil, err
	}

	c.log(ctx).DebugContext(ctx, "record merged",
		slog.String("date", date),
		slog.Bool("has_image", rec.HasImage()),
		slog.Bool("has_explanation", rec.HasExplanation()),
	)

	return rec, nil
}

// MergeOrCreate merges patch into the stored record for base.Date. When
// nothing valid is stored, base with patch applied is written instead. The
// read and the write happen under the same date lock, so concurrent patches
// for one date never drop each other's fields.
func (c *DailyCache) MergeOrCreate(ctx context.Context, base *domain.DailyRecord, patch domain.RecordPatch) (*domain.DailyRecord, error) {
	if base == nil {
		return nil, domain.NewValidationError("record", "must not be nil")
	}

	unlock := c.lock(base.Date)
	defer unlock()

	rec, err := c.load(ctx, base.Date)

	switch {
	case err == nil:
		if !patch.Apply(rec) {
			return rec, nil
		}
	case domain.IsNotFound(err), domain.IsCacheCorrupt(err):
		rec = base.Clone()
		patch.Apply(rec)

		if err := rec.Validate(); err != nil {
			return nil, err
		}

		c.log(ctx).InfoContext(ctx, "stored record missing, rewriting it",
			slog.String("date", base.Date), slog.Any("cause", err))
	default:
		return nil, err
	}

	if err := c.save(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// Evict deletes the record for date.
func (c *DailyCache) Evict(ctx context.Context, date string) error {
	unlock := c.lock(date)
	defer unlock()

	if err := c.store.Delete(ctx, c.Key(date)); err != nil {
		return fmt.Errorf("evicting %s: %w", date, err)
	}

	return nil
}

// Dates lists the dates that have a stored value, newest first. The store
// must implement ports.KeyLister.
func (c *DailyCache) Dates(ctx context.Context) ([]string, error) {
	lister, ok := c.store.(ports.KeyLister)
	if !ok {
		return nil, domain.NewUnavailableError("daily cache", "store cannot list keys")
	}

	keys, err := lister.Keys(ctx, c.prefix)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}

	dates := make([]string, 0, len(keys))
	for _, key := range keys {
		date, ok := strings.CutPrefix(key, c.prefix)
		if !ok {
			continue
		}

		if _, err := domain.ParseDate(date); err != nil {
			continue
		}

		dates = append(dates, date)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	return dates, nil
}

func (c *DailyCache) load(ctx context.Context, date string) (*domain.DailyRecord, error) {
	key := c.Key(date)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("daily record", date)
		}

		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	return decodeRecord(key, date, data)
}

func (c *DailyCache) save(ctx context.Context, rec *domain.DailyRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	if err := c.store.Put(ctx, c.Key(rec.Date), data); err != nil {
		return fmt.Errorf("writing %s: %w", c.Key(rec.Date), err)
	}

	return nil
}

// discard removes a corrupt entry. A failing delete is logged and ignored:
// the next read will find the same bytes and try again.
func (c *DailyCache) discard(ctx context.Context, date string, cause error) {
	logger := c.log(ctx)
	logger.WarnContext(ctx, "discarding corrupt cache entry",
		slog.String("date", date), slog.Any("error", cause))

	if err := c.store.Delete(ctx, c.Key(date)); err != nil {
		logger.WarnContext(ctx, "failed to delete corrupt cache entry",
			slog.String("date", date), slog.Any("error", err))
	}
}

func (c *DailyCache) lock(date string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(date))
	mu := &c.stripes[h.Sum32()%lockStripes]
	mu.Lock()

	return mu.Unlock
}

func (c *DailyCache) log(ctx context.Context) *slog.Logger {
	if l, ok := logging.Lookup(ctx); ok {
		return l.With(slog.String("component", "daily_cache"))
	}

	return c.logger
}

func encodeRecord(rec *domain.DailyRecord) ([]byte, error) {
	data, err := json.Marshal(storedRecord{
		Date: rec.Date,
		Wisdom: storedWisdom{
			Quote:               rec.Wisdom.Quote,
			Source:              rec.Wisdom.Source,
			Topic:               rec.Wisdom.Topic,
			BriefInterpretation: rec.Wisdom.BriefInterpretation,
		},
		ImageURL:        rec.ImageURL,
		FullExplanation: rec.Explanation,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding record %s: %w", rec.Date, err)
	}

	return data, nil
}

func decodeRecord(key, date string, data []byte) (*domain.DailyRecord, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, domain.NewCorruptEntryError(key, err.Error())
	}

	if stored.Date != date {
		return nil, domain.NewCorruptEntryError(key, fmt.Sprintf("holds date %q", stored.Date))
	}

	rec := &domain.DailyRecord{
		Date: stored.Date,
		Wisdom: domain.WisdomEntry{
			Quote:               stored.Wisdom.Quote,
			Source:              stored.Wisdom.Source,
			Topic:               stored.Wisdom.Topic,
			BriefInterpretation: stored.Wisdom.BriefInterpretation,
		},
		ImageURL:    stored.ImageURL,
		Explanation: stored.FullExplanation,
	}

	if err := rec.Validate(); err != nil {
		return nil, domain.NewCorruptEntryError(key, err.Error())
	}

	return rec, nil
}
