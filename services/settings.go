package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"salgados/docstore"
	"salgados/models"

	"github.com/shopspring/decimal"
)

const (
	settingsCollection = "settings"
	settingsID         = "shop"
)

// DefaultShopSettings is written on first start when no settings document
// exists. Location stays unset, so delivery quotes fail until an admin sets it.
func DefaultShopSettings(name, timezone string) *models.ShopSettings {
	schedule := models.WeeklySchedule{}
	for _, d := range models.Weekdays {
		schedule[d] = models.DaySchedule{Open: d != models.Sunday, Start: "10:00", End: "22:00"}
	}
	return &models.ShopSettings{
		Name:        name,
		Schedule:    schedule,
		Holidays:    []string{},
		Timezone:    timezone,
		PricePerKm:  decimal.RequireFromString("1.00"),
		MaxRadiusKm: 17,
	}
}

// ValidateShopSettings enforces the invariants every reader relies on.
func ValidateShopSettings(s *models.ShopSettings) error {
	for _, d := range models.Weekdays {
		day, ok := s.Schedule[d]
		if !ok {
			return fmt.Errorf("schedule is missing %s", d)
		}
		if !day.Open {
			continue
		}
		start, err := parseClock(day.Start)
		if err != nil {
			return fmt.Errorf("%s start: %w", d, err)
		}
		end, err := parseClock(day.End)
		if err != nil {
			return fmt.Errorf("%s end: %w", d, err)
		}
		if start == end && start != 0 {
			return fmt.Errorf("%s: start equals end; use 00:00-00:00 for a 24 hour day", d)
		}
	}
	for _, h := range s.Holidays {
		if _, err := time.Parse(dateLayout, h); err != nil {
			return fmt.Errorf("holiday %q: %w", h, ErrInvalidDate)
		}
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	if s.PricePerKm.IsNegative() {
		return errors.New("delivery price per km must not be negative")
	}
	if s.MaxRadiusKm <= 0 {
		return errors.New("delivery radius must be positive")
	}
	if p := s.Location; p != nil && (p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180) {
		return fmt.Errorf("location %v,%v is out of range", p.Lat, p.Lng)
	}
	return nil
}

type SettingsRepo struct {
	store *docstore.Store
}

func NewSettingsRepo(store *docstore.Store) *SettingsRepo {
	return &SettingsRepo{store: store}
}

func (r *SettingsRepo) Get(ctx context.Context) (*models.ShopSettings, error) {
	var s models.ShopSettings
	if err := r.store.Get(ctx, settingsCollection, settingsID, &s); err != nil {
		return nil, fmt.Errorf("load shop settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepo) Save(ctx context.Context, s *models.ShopSettings) error {
	if err := ValidateShopSettings(s); err != nil {
		return &ValidationError{Reason: err.Error(), Err: err}
	}
	if err := r.store.Set(ctx, settingsCollection, settingsID, s); err != nil {
		return fmt.Errorf("save shop settings: %w", err)
	}
	return nil
}

// EnsureDefaults writes def when no settings document exists yet.
func (r *SettingsRepo) EnsureDefaults(ctx context.Context, def *models.ShopSettings) error {
	_, err := r.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	log.Printf("settings: no shop settings found, writing defaults tz=%s", def.Timezone)
	return r.Save(ctx, def)
}

// SettingsCache holds the latest shop settings snapshot. Readers get an
// immutable value they pass explicitly into pricing and hours functions.
type SettingsCache struct {
	current atomic.Pointer[models.ShopSettings]
}

func NewSettingsCache(initial *models.ShopSettings) *SettingsCache {
	c := &SettingsCache{}
	if initial != nil {
		c.current.Store(initial)
	}
	return c
}

// Current returns the latest snapshot, or nil before the first load.
func (c *SettingsCache) Current() *models.ShopSettings {
	return c.current.Load()
}

// Replace installs a snapshot that was just saved, ahead of the change
// notification.
func (c *SettingsCache) Replace(s *models.ShopSettings) {
	if s != nil {
		c.current.Store(s)
	}
}

// Apply replaces the snapshot with a decoded settings document. Invalid or
// deleted documents keep the previous snapshot.
func (c *SettingsCache) Apply(raw json.RawMessage) {
	if raw == nil {
		log.Printf("settings: document deleted, keeping last snapshot")
		return
	}
	var s models.ShopSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Printf("settings: decode update: %v", err)
		return
	}
	if err := ValidateShopSettings(&s); err != nil {
		log.Printf("settings: ignoring invalid update: %v", err)
		return
	}
	c.current.Store(&s)
}

// Watch keeps the cache in sync with the settings document until the
// returned function is called.
func (c *SettingsCache) Watch(ctx context.Context, store *docstore.Store) (stop func()) {
	return store.Subscribe(ctx, settingsCollection, settingsID, c.Apply, docstore.LogListenerError("settings"))
}

// SettingsService writes settings through the repo and installs the saved
// snapshot in the cache.
type SettingsService struct {
	repo  *SettingsRepo
	cache *SettingsCache
}

func NewSettingsService(repo *SettingsRepo, cache *SettingsCache) *SettingsService {
	return &SettingsService{repo: repo, cache: cache}
}

func (s *SettingsService) Current() *models.ShopSettings {
	return s.cache.Current()
}

func (s *SettingsService) Save(ctx context.Context, settings *models.ShopSettings) error {
	if err := s.repo.Save(ctx, settings); err != nil {
		return err
	}
	s.cache.Replace(settings)
	return nil
}
