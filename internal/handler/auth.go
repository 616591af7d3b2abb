package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const tokenCookieName = "__ed_roster_token"

type AuthClaims struct {
	jwt.RegisteredClaims
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func loginAttemptsKey(ip string) string {
	return fmt.Sprintf("login_attempts_%s", ip)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	// 同一个 IP 连续输错太多次之后，在锁定期内直接拒绝
	key := loginAttemptsKey(clientIP(r))
	attempts, err := h.redisClient.Get(ctx, key).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		h.internalServerError(w, r, err)
		return
	}
	if attempts >= h.config.Access.MaxAttempts {
		h.errorResponseWithCode(w, r, CodeTooManyAttempts, "too many failed attempts, try again later", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.config.Access.CodeHash), []byte(req.Code)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			if err := h.recordFailedLogin(ctx, key); err != nil {
				h.internalServerError(w, r, err)
				return
			}
			h.errorResponse(w, r, "invalid access code")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.redisClient.Del(ctx, key).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 生成 JWT
	now := time.Now()
	expiration := now.Add(time.Duration(h.config.JWT.Expiration) * time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   "roster",
		},
	})
	ss, err := token.SignedString([]byte(h.config.JWT.Secret))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 通过 http-only 的 cookie 返回给客户端
	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    ss,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)

	h.successResponse(w, r, "signed in", nil)
}

// recordFailedLogin 第一次失败时开始计时，锁定期从第一次失败算起
func (h *Handler) recordFailedLogin(ctx context.Context, key string) error {
	n, err := h.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return h.redisClient.Expire(ctx, key, time.Duration(h.config.Access.Lockout)*time.Second).Err()
	}
	return nil
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:    tokenCookieName,
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
		Path:    "/",
	})

	h.successResponse(w, r, "signed out", nil)
}
