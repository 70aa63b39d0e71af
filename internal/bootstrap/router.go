package bootstrap

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quizdeck/quizdeck-backend/config"
	accesskeyshttp "github.com/quizdeck/quizdeck-backend/internal/accesskeys/http"
	accesskeysservice "github.com/quizdeck/quizdeck-backend/internal/accesskeys/service"
	"github.com/quizdeck/quizdeck-backend/internal/activity"
	"github.com/quizdeck/quizdeck-backend/internal/auth"
	authmw "github.com/quizdeck/quizdeck-backend/internal/auth/middleware"
	"github.com/quizdeck/quizdeck-backend/internal/cache"
	ordershttp "github.com/quizdeck/quizdeck-backend/internal/orders/http"
	ordersservice "github.com/quizdeck/quizdeck-backend/internal/orders/service"
	roleshttp "github.com/quizdeck/quizdeck-backend/internal/roles/http"
	rolesservice "github.com/quizdeck/quizdeck-backend/internal/roles/service"
	"github.com/quizdeck/quizdeck-backend/internal/store"
	usersdomain "github.com/quizdeck/quizdeck-backend/internal/users/domain"
)

type RouterDeps struct {
	Cfg   *config.Config
	Store store.Store
	Auth  *auth.Clients
	Cache *cache.Cache
}

// Services bundles the constructed service layer, for callers that need it
// outside the router (the cron scheduler).
type Services struct {
	Keys   *accesskeysservice.Service
	Roles  *rolesservice.Service
	Orders *ordersservice.Service
}

// BuildRouter wires the request pipeline: CORS and health first, then per
// group auth, rate limiting, role checks, and activity logging.
func BuildRouter(dep RouterDeps) (*gin.Engine, *Services) {
	r := gin.Default()

	r.Use(authmw.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.Cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "quizdeck-backend",
			"version": dep.Cfg.App.Version,
		})
	})

	exec := store.NewExecutor(dep.Store)
	recorder := activity.NewRecorder(dep.Store)

	keysService := accesskeysservice.NewService(dep.Store, exec, recorder)
	rolesService := rolesservice.NewService(dep.Store, exec, recorder, dep.Cache)
	ordersService := ordersservice.NewService(dep.Store, exec, recorder)

	api := r.Group("/api/v1")
	api.Use(authmw.FirebaseAuthMiddleware(dep.Auth.Auth))
	api.Use(authmw.RateLimitMiddleware(dep.Cache, dep.Cfg.App.RateLimitPerMinute))
	api.Use(authmw.ActivityLogMiddleware(recorder))

	admin := api.Group("/admin")
	admin.Use(authmw.RequireRole(rolesService, usersdomain.RoleAdmin))

	accesskeyshttp.NewHandler(keysService).Register(api, admin)
	roleshttp.NewHandler(rolesService).Register(admin)
	ordershttp.NewHandler(ordersService).Register(api, admin)

	return r, &Services{Keys: keysService, Roles: rolesService, Orders: ordersService}
}
