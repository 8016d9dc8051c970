package core

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs the Gin engine with all routes wired. Repositories
// and the publisher come in as interfaces so tests can substitute doubles.
func NewRouter(cfg Config, auth *AuthService, products ProductRepository, publisher *EventPublisher, metrics *MetricsService) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	r.Use(CORSMiddleware(cfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", func(c *gin.Context) {
			var req RegisterRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if ferr := req.Validate(); ferr != nil {
				respondFieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", ferr.Message, ferr.Field)
				return
			}

			ctx := c.Request.Context()
			if _, err := auth.Register(ctx, req.Name, req.Email, req.Password); err != nil {
				if errors.Is(err, ErrEmailTaken) {
					respondFieldError(c, http.StatusConflict, "CONFLICT", "Email already registered", "email")
					return
				}
				log.Printf("register failed: %v", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully"})
		})

		authRoutes.POST("/login", func(c *gin.Context) {
			var req LoginRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if ferr := req.Validate(); ferr != nil {
				respondFieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", ferr.Message, ferr.Field)
				return
			}

			token, user, err := auth.Login(c.Request.Context(), req.Email, req.Password)
			if err != nil {
				if errors.Is(err, ErrInvalidCredentials) {
					respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
					return
				}
				log.Printf("login failed: %v", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"token": token,
				"user":  gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
			})
		})

		authRoutes.POST("/forgot-password", func(c *gin.Context) {
			var req ForgotPasswordRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if ferr := req.Validate(); ferr != nil {
				respondFieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", ferr.Message, ferr.Field)
				return
			}

			if err := auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
				log.Printf("forgot-password failed: %v", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			// Identical body and status whether or not the email exists.
			c.JSON(http.StatusOK, gin.H{"message": "If account exists, reset link sent"})
		})

		authRoutes.POST("/reset-password", func(c *gin.Context) {
			var req ResetPasswordRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if ferr := req.Validate(); ferr != nil {
				respondFieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", ferr.Message, ferr.Field)
				return
			}

			if err := auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
				if errors.Is(err, ErrInvalidResetToken) {
					respondError(c, http.StatusBadRequest, "INVALID_RESET_TOKEN", "Token is invalid or expired")
					return
				}
				log.Printf("reset-password failed: %v", err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
		})
	}

	protected := r.Group("/")
	protected.Use(RequireAuth([]byte(cfg.JWTSecret)))
	{
		protected.GET("/products", func(c *gin.Context) {
			page, limit, err := parsePagination(c.Query("page"), c.Query("limit"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			owner := currentPrincipal(c)
			items, err := products.List(c.Request.Context(), owner.ID, page, limit)
			if err != nil {
				log.Printf("list products failed for user %s: %v", owner.ID, err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusOK, items)
		})

		protected.GET("/products/search", func(c *gin.Context) {
			filter := SearchFilter{
				Keyword:  strings.TrimSpace(c.Query("q")),
				Category: strings.TrimSpace(c.Query("category")),
			}
			if v := strings.TrimSpace(c.Query("minPrice")); v != "" {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					respondFieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", "minPrice must be a number", "minPrice")
					return
				}
				filter.MinPrice = &f
			}
			if v := strings.TrimSpace(c.Query("maxPrice")); v != "" {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					respondFieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", "maxPrice must be a number", "maxPrice")
					return
				}
				filter.MaxPrice = &f
			}

			owner := currentPrincipal(c)
			items, err := products.Search(c.Request.Context(), owner.ID, filter)
			if err != nil {
				log.Printf("search products failed for user %s: %v", owner.ID, err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusOK, items)
		})

		protected.POST("/products", func(c *gin.Context) {
			var req ProductCreateRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if ferr := req.Validate(); ferr != nil {
				respondFieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", ferr.Message, ferr.Field)
				return
			}

			owner := currentPrincipal(c)
			p, err := products.Create(c.Request.Context(), owner.ID, req.Input())
			if err != nil {
				log.Printf("create product failed for user %s: %v", owner.ID, err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusCreated, p)
			// After the primary write committed; failure leaves the
			// projections stale, never the response.
			publisher.Publish(NewProductEvent(EventProductCreated, p))
		})

		protected.GET("/products/:id", func(c *gin.Context) {
			owner := currentPrincipal(c)
			p, err := products.Get(c.Request.Context(), owner.ID, c.Param("id"))
			if err != nil {
				if errors.Is(err, ErrProductNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
					return
				}
				log.Printf("get product failed for user %s: %v", owner.ID, err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusOK, p)
		})

		protected.PUT("/products/:id", func(c *gin.Context) {
			var req ProductUpdateRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if ferr := req.Validate(); ferr != nil {
				respondFieldError(c, http.StatusBadRequest, "VALIDATION_ERROR", ferr.Message, ferr.Field)
				return
			}

			owner := currentPrincipal(c)
			p, err := products.Update(c.Request.Context(), owner.ID, c.Param("id"), req.Patch())
			if err != nil {
				if errors.Is(err, ErrProductNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
					return
				}
				log.Printf("update product failed for user %s: %v", owner.ID, err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusOK, p)
			publisher.Publish(NewProductEvent(EventProductUpdated, p))
		})

		protected.DELETE("/products/:id", func(c *gin.Context) {
			owner := currentPrincipal(c)
			id := c.Param("id")
			if err := products.Delete(c.Request.Context(), owner.ID, id); err != nil {
				if errors.Is(err, ErrProductNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "Product not found")
					return
				}
				log.Printf("delete product failed for user %s: %v", owner.ID, err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
			publisher.Publish(NewProductEvent(EventProductDeleted, &Product{ID: id, UserID: owner.ID}))
		})

		protected.GET("/status", func(c *gin.Context) {
			st, err := CollectSystemStatus(c.Request.Context(), metrics, startedAt)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to load status")
				return
			}
			c.JSON(http.StatusOK, st)
		})
	}

	return r
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func parsePagination(pageStr, limitStr string) (int, int, error) {
	page := 1
	limit := defaultPageSize
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = p
	}
	if strings.TrimSpace(limitStr) != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if l > maxPageSize {
			l = maxPageSize
		}
		limit = l
	}
	return page, limit, nil
}
