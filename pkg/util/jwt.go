package util

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName 前端登录后写入的会话 cookie
const DefaultCookieName = "auth_token"

// Identity 是令牌校验后的调用方身份
type Identity struct {
	UserID int
	Role   string
}

// VerifyToken 校验 HS256 令牌并提取 user_id 与 role
func VerifyToken(tokenStr, secret string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}

	if !token.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, jwt.ErrTokenMalformed
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return Identity{}, errors.Join(jwt.ErrTokenMalformed, errors.New("missing user_id"))
	}

	role, _ := claims["role"].(string)
	return Identity{UserID: int(userIDFloat), Role: role}, nil
}

// ExtractToken 优先读取会话 cookie，其次读取 Authorization: Bearer
func ExtractToken(r *http.Request, cookieName string) string {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
