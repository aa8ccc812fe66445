package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisLockerOptions struct {
	// host:port 地址，为空时不加锁
	Endpoint string `cfg:"endpoint"`

	// 使用 Redis ACL 时的用户名
	Username string `cfg:"username"`

	Password string `cfg:"password"`

	// 连接到服务器后选择的数据库。
	DB int `cfg:"db" def:"0"`

	// 锁的过期时间，进程异常退出后锁最多保留这么久。持有期间每 TTL/3 续期一次
	TTL time.Duration `cfg:"ttl" def:"10m"`

	// 锁的 key 前缀
	Prefix string `cfg:"prefix" def:"ecomingest:lock:"`

	// 建立新连接的拨号超时时间。
	DialTimeout time.Duration `cfg:"dialTimeout" def:"5s"`

	// 套接字读取的超时时间。
	ReadTimeout time.Duration `cfg:"readTimeout" def:"3s"`

	// 套接字写入的超时时间。
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
}

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript 仍持有锁时延长过期时间
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisLockerWithOptions(ctx context.Context, options *RedisLockerOptions) (*RedisLocker, error) {
	if options.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if options.TTL < time.Millisecond {
		return nil, errors.Errorf("invalid ttl %v", options.TTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         options.Endpoint,
		Username:     options.Username,
		Password:     options.Password,
		DB:           options.DB,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WithMessage(err, "redis.client.Ping failed")
	}

	return &RedisLocker{
		client: client,
		ttl:    options.TTL,
		prefix: options.Prefix,
	}, nil
}

// Acquire 使用 SET NX PX 加锁，锁已被持有时返回 ErrLocked
func (l *RedisLocker) Acquire(ctx context.Context, name string) (Release, error) {
	key := l.prefix + name
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis.SetNX failed. key: %s", key)
	}
	if !ok {
		return nil, errors.Wrapf(ErrLocked, "key: %s", key)
	}

	keepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go l.keepAlive(keepCtx, key, token, done)

	return func(ctx context.Context) error {
		cancel()
		<-done
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return errors.Wrapf(err, "release lock failed. key: %s", key)
		}
		return nil
	}, nil
}

// keepAlive 定期续期，锁已被他人持有时退出
func (l *RedisLocker) keepAlive(ctx context.Context, key, token string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(max(l.ttl/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			if err == nil && n == 0 {
				return
			}
		}
	}
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "rand.Read failed")
	}
	return hex.EncodeToString(buf), nil
}
