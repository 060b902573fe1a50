package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventsapi/middlewares"
	"eventsapi/models"
	"eventsapi/services"
	"eventsapi/utils"
)

type deps struct {
	users  models.UserRepository
	events *services.EventService
	inv    *utils.CacheInvalidator
}

// RegisterRoutes wires the HTTP surface. Repositories and the event service
// come from main so nothing here depends on a particular backing store.
func RegisterRoutes(
	server *gin.Engine,
	u models.UserRepository,
	e *services.EventService,
	rdb *redis.Client,
	inv *utils.CacheInvalidator,
) {
	d := &deps{users: u, events: e, inv: inv}

	// Global IP limit.
	globalLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     20,
		Burst:   40,
		IdleTTL: 3 * time.Minute,
	})
	server.Use(globalLimiter.Middleware(func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}))

	// Stricter limit on the credential endpoints.
	authLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     0.5,
		Burst:   2,
		IdleTTL: 10 * time.Minute,
	})
	server.POST("/signup",
		authLimiter.Middleware(func(c *gin.Context) string { return "signup:" + c.ClientIP() }),
		d.signup,
	)
	server.POST("/login",
		authLimiter.Middleware(func(c *gin.Context) string { return "login:" + c.ClientIP() }),
		d.login,
	)

	// Everything touching events requires the bearer credential; lists are
	// per-owner so even GET sits behind Authenticate.
	auth := server.Group("/")
	auth.Use(middlewares.Authenticate)

	userLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		RPS:     5,
		Burst:   10,
		IdleTTL: 10 * time.Minute,
	})
	auth.Use(userLimiter.Middleware(func(c *gin.Context) string {
		return "u:" + strconv.FormatInt(c.GetInt64("userId"), 10)
	}))

	auth.Use(middlewares.Quota(rdb, middlewares.QuotaRule{
		Limit:  2000,
		Window: 24 * time.Hour,
		KeyFn: func(c *gin.Context) string {
			uid := c.GetInt64("userId")
			if uid == 0 {
				return ""
			}
			return fmt.Sprintf("quota:user:%d:day", uid)
		},
	}))

	// The list cache key carries the userId, so the cache sits after
	// Authenticate and mutations purge through d.inv.
	auth.Use(middlewares.ResponseCache(rdb, 30*time.Second))

	auth.GET("/events", d.getEvents)
	auth.POST("/events", d.createEvent)
	auth.PUT("/events/:id", d.updateEvent)
	auth.DELETE("/events/:id", d.deleteEvent)
}

/* --------------------- Auth --------------------- */

// POST /signup
func (d *deps) signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	u := models.User{Email: req.Email, Password: req.Password}
	if err := d.users.Create(&u); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not save user."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created successfully"})
}

// POST /login
func (d *deps) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	user, err := d.users.ValidateCredentials(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Could not authenticate user."})
		return
	}

	token, err := utils.GenerateToken(user.Email, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not authenticate user."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful!", "token": token, "userId": user.ID})
}
