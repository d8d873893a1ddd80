package config

import "testing"

func TestRedisOptionsHostPort(t *testing.T) {
	cfg := &Config{RedisURL: "localhost:6379", RedisPassword: "secret", RedisDB: 3}

	opt, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "localhost:6379" {
		t.Fatalf("expected addr localhost:6379, got %q", opt.Addr)
	}
	if opt.Password != "secret" || opt.DB != 3 {
		t.Fatalf("password/db not carried over: %q/%d", opt.Password, opt.DB)
	}
}

func TestRedisOptionsURL(t *testing.T) {
	cfg := &Config{RedisURL: "redis://user:pw@redis.example.com:6380/2"}

	opt, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "redis.example.com:6380" {
		t.Fatalf("expected addr redis.example.com:6380, got %q", opt.Addr)
	}
	if opt.Username != "user" || opt.Password != "pw" || opt.DB != 2 {
		t.Fatalf("credentials/db not parsed: %q/%q/%d", opt.Username, opt.Password, opt.DB)
	}
}

func TestRedisOptionsInvalidURL(t *testing.T) {
	cfg := &Config{RedisURL: "redis://host:notaport"}

	if _, err := cfg.RedisOptions(); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}

func TestAsynqRedisOptMatchesRedisOptions(t *testing.T) {
	cfg := &Config{RedisURL: "rediss://:pw@cache.upstash.io:6379"}

	redisOpt, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	asynqOpt, err := cfg.AsynqRedisOpt()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if asynqOpt.Addr != redisOpt.Addr || asynqOpt.Password != redisOpt.Password || asynqOpt.DB != redisOpt.DB {
		t.Fatalf("queue options diverge from client options: %+v vs %+v", asynqOpt, redisOpt)
	}
	// rediss:// must carry TLS into the queue connection as well.
	if redisOpt.TLSConfig == nil || asynqOpt.TLSConfig == nil {
		t.Fatal("expected TLS config for rediss:// on both clients")
	}
}
