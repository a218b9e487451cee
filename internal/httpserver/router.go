package httpserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	usersvc "storefront/internal/service/user"
)

type cartService interface {
	Show(ctx context.Context, req cartsvc.Request) (*cartsvc.Result, error)
	Add(ctx context.Context, req cartsvc.Request, variantID string, quantity int) (*cartsvc.Result, error)
	Remove(ctx context.Context, req cartsvc.Request, variantID string, quantity int) (*cartsvc.Result, error)
}

type userService interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string) error
	AccessTTLSeconds() int
}

// Deps are the services behind the routes and the checks behind /readyz.
type Deps struct {
	CartSvc   cartService
	UserSvc   userService
	Readiness []ReadinessCheck
}

// Options tune the cart cookie, locale negotiation and CORS.
type Options struct {
	CookieName       string
	CookieMaxAge     time.Duration
	CookieSecure     bool
	CookieDomain     string
	DefaultLocale    string
	SupportedLocales []string
	CORSOrigins      []string
}

func (o Options) withDefaults() Options {
	if o.CookieName == "" {
		o.CookieName = "cart"
	}
	if o.CookieMaxAge <= 0 {
		o.CookieMaxAge = 525600 * time.Minute
	}
	if o.DefaultLocale == "" {
		o.DefaultLocale = "en"
	}
	return o
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps, opts Options) (*gin.Engine, error) {
	if deps.CartSvc == nil {
		return nil, errors.New("cart service is required")
	}
	if deps.UserSvc == nil {
		return nil, errors.New("user service is required")
	}
	opts = opts.withDefaults()

	router := gin.New()
	router.Use(requestIDMiddleware(), requestLogger(logger), gin.Recovery())
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Readiness, logger))

	h := &handlers{
		logger: logger,
		cart:   deps.CartSvc,
		users:  deps.UserSvc,
		cookie: opts,
	}

	router.POST("/register", h.register)
	router.POST("/login", h.login)
	router.GET("/logout", requireAuth(deps.UserSvc), h.logout)
	router.GET("/me", requireAuth(deps.UserSvc), h.me)

	cart := router.Group("/cart", optionalAuth(deps.UserSvc, logger), localeMiddleware(opts.DefaultLocale, opts.SupportedLocales))
	cart.GET("/show", h.showCart)
	cart.GET("/add", h.addToCart)
	cart.POST("/add", h.addToCart)
	cart.DELETE("/remove", h.removeFromCart)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	var allowed []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		// Credentials cannot be combined with a literal "*", so echo the origin.
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = allowed
	}
	return cfg
}

type handlers struct {
	logger *zap.Logger
	cart   cartService
	users  userService
	cookie Options
}
