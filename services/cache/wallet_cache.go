package cache

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// WalletIDCache remembers which wallet belongs to which user. The mapping
// never changes once a wallet exists, so it is safe to cache. Balances are
// never stored here.
type WalletIDCache struct {
	init bool
	c    *cache.Cache
}

var (
	instance WalletIDCache
	lock     = &sync.Mutex{}
)

// Shared returns the process-wide cache, starting it on first use.
func Shared() *WalletIDCache {
	lock.Lock()
	defer lock.Unlock()

	if !instance.init {
		instance = *NewWalletIDCache(30*time.Minute, time.Hour)
	}
	return &instance
}

func NewWalletIDCache(ttl, cleanup time.Duration) *WalletIDCache {
	return &WalletIDCache{
		init: true,
		c:    cache.New(ttl, cleanup),
	}
}

func key(userID int64) string {
	return "wallet:user:" + strconv.FormatInt(userID, 10)
}

func (w *WalletIDCache) Insert(userID int64, walletID uuid.UUID) {
	w.c.Set(key(userID), walletID, cache.DefaultExpiration)
}

func (w *WalletIDCache) Get(userID int64) (uuid.UUID, bool) {
	val, found := w.c.Get(key(userID))
	if !found {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

func (w *WalletIDCache) Flush() {
	w.c.Flush()
}
