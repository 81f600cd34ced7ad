package level

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis"
	"github.com/tendermint/tendermint/libs/log"
	dbm "github.com/tendermint/tm-db"
)

// ErrNotFound is returned when a key is absent or has expired
var ErrNotFound = errors.New("not found")

type Cache struct {
	RedisClient *redis.Client
	LevelDb     dbm.DB
	Logger      log.Logger
}

// entry wraps values stored in leveldb so expiry survives restarts
type entry struct {
	Value   json.RawMessage `json:"value"`
	Expires int64           `json:"expires,omitempty"`
}

// create redis caching layer in front of leveldb; redis is optional
func NewCache(db dbm.DB, redisClient *redis.Client, logger log.Logger) *Cache {
	return &Cache{
		RedisClient: redisClient,
		LevelDb:     db,
		Logger:      logger.With("module", "cache"),
	}
}

// OpenDB opens the local store, "memdb" keeps everything in memory
func OpenDB(dbType string, dir string) dbm.DB {
	if dbType == string(dbm.MemDBBackend) {
		return dbm.NewMemDB()
	}
	return dbm.NewDB("stacking", dbm.BackendType(dbType), dir)
}

// NewRedisClient : nil when uri is empty
func NewRedisClient(uri string) (*redis.Client, error) {
	if uri == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// SetJSON stores value under key. A zero ttl never expires.
func (cache *Cache) SetJSON(key string, value interface{}, ttl time.Duration) error {
	bArr, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if cache.RedisClient != nil {
		if err := cache.RedisClient.Set(key, bArr, ttl).Err(); err != nil {
			cache.Logger.Error("redis set failed, using leveldb only", "key", key, "err", err)
		}
	}
	e := entry{Value: bArr}
	if ttl > 0 {
		e.Expires = time.Now().Add(ttl).UnixNano()
	}
	stored, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return cache.LevelDb.Set([]byte(key), stored)
}

// GetJSON loads key into out, returning ErrNotFound when missing or expired
func (cache *Cache) GetJSON(key string, out interface{}) error {
	if cache.RedisClient != nil {
		bArr, err := cache.RedisClient.Get(key).Bytes()
		if err == nil {
			return json.Unmarshal(bArr, out)
		}
		if err != redis.Nil {
			cache.Logger.Error("redis get failed, falling back to leveldb", "key", key, "err", err)
		}
	}
	stored, err := cache.LevelDb.Get([]byte(key))
	if err != nil {
		return err
	}
	if stored == nil {
		return ErrNotFound
	}
	var e entry
	if err := json.Unmarshal(stored, &e); err != nil {
		return err
	}
	if e.Expires != 0 && time.Now().UnixNano() > e.Expires {
		return ErrNotFound
	}
	return json.Unmarshal(e.Value, out)
}

// Del removes key from both layers
func (cache *Cache) Del(key string) error {
	if cache.RedisClient != nil {
		cache.RedisClient.Del(key)
	}
	return cache.LevelDb.Delete([]byte(key))
}

func (cache *Cache) Close() error {
	if cache.RedisClient != nil {
		cache.RedisClient.Close()
	}
	return cache.LevelDb.Close()
}
