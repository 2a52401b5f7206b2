package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/config"
)

// Controller handles the authentication HTTP endpoints.
type Controller struct {
	service *Service
	config  config.Auth
}

func NewController(service *Service, cfg config.Auth) *Controller {
	return &Controller{service: service, config: cfg}
}

// RegisterRoutes mounts the auth endpoints. The mutating session endpoints
// (logout) get the session and CSRF guards; login and register are public
// but rate-limited by the auth class.
func (ac *Controller) RegisterRoutes(api *gin.RouterGroup, limiter *RateLimiter) {
	authGroup := api.Group("/auth")
	authGroup.POST("/login", limiter.Middleware(ClassAuth), ac.Login)
	authGroup.POST("/register", limiter.Middleware(ClassAuth), ac.Register)
	authGroup.DELETE("/logout", RequireSession(), RequireCSRF(), ac.Logout)
	authGroup.GET("/me", ac.Me)
}

type credentialsRequest struct {
	User         string `json:"user"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
}

// Login verifies credentials and sets the session cookie. The CSRF token
// travels in the /auth/me response body, not here and not in the cookie.
func (ac *Controller) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.User == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	if req.CaptchaToken == "" && !ac.config.CaptchaDisabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing captcha token"})
		return
	}

	session, err := ac.service.Login(c.Request.Context(), req.User, req.Password, req.CaptchaToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		case errors.Is(err, ErrCaptchaFailed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "reCAPTCHA failed"})
		default:
			log.Printf("login failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	ac.setSessionCookie(c, session.ID, int(ac.config.SessionLifetime.Seconds()))
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

// Register creates a new account.
func (ac *Controller) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.User == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	if req.CaptchaToken == "" && !ac.config.CaptchaDisabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing captcha token"})
		return
	}

	_, err := ac.service.Register(c.Request.Context(), req.User, req.Password, req.CaptchaToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameInvalid), errors.Is(err, ErrPasswordInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		case errors.Is(err, ErrCaptchaFailed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "reCAPTCHA failed"})
		default:
			log.Printf("registration failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful"})
}

// Logout revokes the current session and clears the cookie. The session
// and CSRF guards run before this handler.
func (ac *Controller) Logout(c *gin.Context) {
	session, _ := CurrentSession(c)

	if err := ac.service.Logout(c.Request.Context(), session.ID); err != nil {
		log.Printf("logout failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ac.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the current user and their CSRF token, or {user: null} for
// anonymous and expired sessions. Never an error for a missing session.
func (ac *Controller) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	session, _ := CurrentSession(c)

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"created":  user.CreatedAt,
		},
		"csrfToken": session.CSRFToken,
	})
}

func (ac *Controller) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, value, maxAge, "/", "", ac.config.SecureCookies, true)
}
