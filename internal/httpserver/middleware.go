package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"storefront/internal/domain"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	userCtxKey      = "user"
	tokenCtxKey     = "access_token"
	localeCtxKey    = "locale"
)

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("http request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Info("http request", fields...)
		}
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// optionalAuth attaches the user of a valid bearer token. Requests without
// one, or with a token that no longer resolves, continue anonymously.
func optionalAuth(users userService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		u, err := users.LookupByToken(c.Request.Context(), token)
		if err != nil {
			logger.Debug("auth: continuing anonymously", zap.String("request_id", c.GetString(requestIDKey)), zap.Error(err))
			c.Next()
			return
		}
		c.Set(userCtxKey, u)
		c.Set(tokenCtxKey, token)
		c.Next()
	}
}

func requireAuth(users userService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		u, err := users.LookupByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		c.Set(userCtxKey, u)
		c.Set(tokenCtxKey, token)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userCtxKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

// localeMiddleware picks the display locale from ?lang= or Accept-Language,
// matched against supported. The first supported locale is the fallback.
func localeMiddleware(defaultLocale string, supported []string) gin.HandlerFunc {
	names := []string{defaultLocale}
	for _, s := range supported {
		if s = strings.TrimSpace(s); s != "" && s != defaultLocale {
			names = append(names, s)
		}
	}
	tags := make([]language.Tag, 0, len(names))
	for _, n := range names {
		tags = append(tags, language.Make(n))
	}
	matcher := language.NewMatcher(tags)

	return func(c *gin.Context) {
		c.Set(localeCtxKey, negotiateLocale(matcher, names, c.Query("lang"), c.GetHeader("Accept-Language")))
		c.Next()
	}
}

func negotiateLocale(matcher language.Matcher, names []string, query, header string) string {
	var wanted []language.Tag
	if query != "" {
		if tag, err := language.Parse(query); err == nil {
			wanted = append(wanted, tag)
		}
	}
	if header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil {
			wanted = append(wanted, tags...)
		}
	}
	if len(wanted) == 0 {
		return names[0]
	}
	_, idx, conf := matcher.Match(wanted...)
	if conf == language.No || idx < 0 || idx >= len(names) {
		return names[0]
	}
	return names[idx]
}

func currentLocale(c *gin.Context) string {
	return c.GetString(localeCtxKey)
}
