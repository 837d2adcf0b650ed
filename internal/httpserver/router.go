package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skotchmaster/videohub/internal/middleware/auth"
	"github.com/Skotchmaster/videohub/internal/middleware/ratelimit"
	"github.com/Skotchmaster/videohub/internal/tokens"
)

type Deps struct {
	Auth          *AuthHTTP
	Users         *UserHTTP
	Videos        *VideoHTTP
	Subscriptions *SubscriptionHTTP
	Tokens        *tokens.Service
	Limiter       *ratelimit.Limiter
	// Ready reports whether dependencies are reachable; nil means always ready.
	Ready func() error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	jsonLimit := middleware.BodyLimit("16K")
	requireAuth := auth.RequireAuth(d.Tokens)
	throttle := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if d.Limiter != nil {
		throttle = d.Limiter.Middleware()
	}

	v1 := e.Group("/api/v1")

	users := v1.Group("/users")
	users.POST("/register", d.Users.Register, throttle)
	users.POST("/login", d.Auth.Login, throttle, jsonLimit)
	users.POST("/refresh-token", d.Auth.Refresh, jsonLimit)

	me := users.Group("", requireAuth)
	me.POST("/logout", d.Auth.Logout)
	me.POST("/change-password", d.Auth.ChangePassword, jsonLimit)
	me.GET("/current-user", d.Users.CurrentUser)
	me.PATCH("/update-account", d.Users.UpdateAccount, jsonLimit)
	me.PATCH("/avatar", d.Users.UpdateAvatar)
	me.PATCH("/cover-image", d.Users.UpdateCoverImage)
	me.GET("/c/:username", d.Users.ChannelProfile)
	me.GET("/history", d.Users.WatchHistory)

	videos := v1.Group("/videos", requireAuth)
	videos.GET("", d.Videos.List)
	videos.POST("", d.Videos.Publish)
	videos.GET("/search", d.Videos.Search)
	videos.GET("/:videoId", d.Videos.Get)
	videos.PATCH("/:videoId", d.Videos.Update)
	videos.DELETE("/:videoId", d.Videos.Delete)
	videos.PATCH("/toggle/publish/:videoId", d.Videos.TogglePublish)

	subs := v1.Group("/subscriptions", requireAuth)
	subs.POST("/c/:channelId", d.Subscriptions.Toggle)
	subs.GET("/c/:channelId", d.Subscriptions.Subscribers)
	subs.GET("/c/:channelId/count", d.Subscriptions.Count)
	subs.GET("/c/:channelId/status", d.Subscriptions.Status)
	subs.GET("/u", d.Subscriptions.Subscriptions)
	subs.GET("/u/:subscriberId", d.Subscriptions.Subscriptions)
}
