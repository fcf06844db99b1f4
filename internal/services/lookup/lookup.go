package lookup

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/subul/order-gateway/internal/cache"
	"github.com/subul/order-gateway/internal/models"
	"github.com/subul/order-gateway/internal/phone"
)

type CustomerFinder interface {
	FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Result — итог поиска клиента по номеру телефона.
type Result struct {
	Raw        string // что ввёл пользователь, сохраняем как есть
	Normalized string

	// Invalid: номер не прошёл локальный паттерн, поиск не выполнялся.
	Invalid bool

	Found    bool
	Customer *models.Customer

	// ExpandLocations: в режиме создания у найденного клиента есть
	// сохранённые локации — форме стоит раскрыть их список.
	ExpandLocations bool
}

// Resolver ищет клиента по нормализованному телефону.
// Ошибка поиска эквивалентна "не найден": пользователь идёт дальше
// по пути нового клиента, сбой остаётся только в логах.
type Resolver struct {
	finder CustomerFinder
	cache  cache.BytesCache
	ttl    time.Duration

	rl          RateLimiter
	rlPerMinute int64
}

func NewResolver(finder CustomerFinder, c cache.BytesCache, ttl time.Duration) *Resolver {
	return &Resolver{finder: finder, cache: c, ttl: ttl}
}

func (r *Resolver) WithRateLimit(rl RateLimiter, perMinute int64) *Resolver {
	r.rl = rl
	r.rlPerMinute = perMinute
	return r
}

func cacheKey(normalized string) string {
	return "customer:phone:" + normalized
}

func (r *Resolver) Resolve(ctx context.Context, raw string, createMode bool) Result {
	res := Result{Raw: raw, Normalized: phone.Normalize(raw)}
	if !phone.IsValidMobile(res.Normalized) {
		res.Invalid = true
		return res
	}

	if r.rl != nil && r.rlPerMinute > 0 {
		key := "rl:lookup:" + time.Now().UTC().Format("200601021504")
		allowed, n, err := r.rl.Allow(ctx, key, r.rlPerMinute, 70*time.Second)
		if err == nil && !allowed {
			// Лимит мягкий: притормаживаем, но поиск всё равно выполняем.
			slog.Warn("lookup rate limit exceeded", "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	if r.cache != nil && r.ttl > 0 {
		if b, ok, err := r.cache.Get(ctx, cacheKey(res.Normalized)); err == nil && ok {
			var c models.Customer
			if json.Unmarshal(b, &c) == nil {
				res.Found = true
				res.Customer = &c
				res.ExpandLocations = createMode && len(c.Locations) > 0
				return res
			}
		}
	}

	c, err := r.finder.FindCustomerByPhone(ctx, res.Normalized)
	if err != nil {
		slog.Warn("customer lookup failed, falling back to new customer", "error", err.Error())
		return res
	}
	if c == nil {
		return res
	}

	res.Found = true
	res.Customer = c
	res.ExpandLocations = createMode && len(c.Locations) > 0

	if r.cache != nil && r.ttl > 0 {
		if b, err := json.Marshal(c); err == nil {
			_ = r.cache.Set(ctx, cacheKey(res.Normalized), b, r.ttl)
		}
	}
	return res
}

// Invalidate выбрасывает закэшированный результат поиска по номеру.
// Вызывается после create/update клиента: бэкенд — источник истины.
func (r *Resolver) Invalidate(ctx context.Context, normalized string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Del(ctx, cacheKey(normalized))
}

// Session — поиск «на каждое нажатие»: дебаунс по окну тишины плюс
// монотонный номер запроса. Результат применяется, только если его номер
// совпадает с последним выданным — устаревшие ответы отбрасываются.
type Session struct {
	ctx        context.Context
	r          *Resolver
	interval   time.Duration
	createMode bool
	apply      func(Result)

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

const DefaultDebounce = 500 * time.Millisecond

func NewSession(ctx context.Context, r *Resolver, interval time.Duration, createMode bool, apply func(Result)) *Session {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Session{ctx: ctx, r: r, interval: interval, createMode: createMode, apply: apply}
}

// Search планирует поиск после окна тишины; каждое новое нажатие
// сдвигает окно и отменяет ещё не выданный запрос.
func (s *Session) Search(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, func() {
		s.dispatch(raw)
	})
}

// SearchNow выдаёт запрос немедленно, минуя дебаунс (blur/submit формы).
func (s *Session) SearchNow(raw string) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	go s.dispatch(raw)
}

// Close отменяет запланированный поиск.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Обнуляем актуальность всех выданных запросов.
	s.seq++
}

func (s *Session) dispatch(raw string) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	res := s.r.Resolve(s.ctx, raw, s.createMode)

	s.mu.Lock()
	stale := seq != s.seq
	s.mu.Unlock()
	if stale {
		return
	}
	s.apply(res)
}
