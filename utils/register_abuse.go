package utils

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/fitquest/config"
)

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// RegistrationCooldownTry enforces a short cooldown between attempts per IP.
// It returns false while the cooldown from a previous attempt is still running.
func RegistrationCooldownTry(ip string) bool {
	sec := config.Get().RegisterCooldownSeconds
	if sec <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	ok, err := GetRedis().SetNX(ctx, regKey("cooldown", ip), "1", time.Duration(sec)*time.Second).Result()
	if err != nil {
		return true // fail-open
	}
	return ok
}

// RegistrationDailyLimitCheck allows up to N successful registrations per day per IP.
func RegistrationDailyLimitCheck(ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := GetRedis().Get(ctx, dailyKey(ip)).Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return true
	}
	return n < limit
}

// RegistrationDailyIncrement increments the success counter for today.
func RegistrationDailyIncrement(ip string) {
	cli := GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := dailyKey(ip)
	if err := cli.Incr(ctx, key).Err(); err != nil {
		Sugar.Debugf("registration counter incr failed ip=%s err=%v", ip, err)
		return
	}
	_ = cli.Expire(ctx, key, 24*time.Hour).Err()
}

func dailyKey(ip string) string {
	return regKey("succday", ip, time.Now().UTC().Format("20060102"))
}
