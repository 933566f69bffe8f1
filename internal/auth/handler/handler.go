package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/credentials"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/link"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/provider"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/middleware"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/session"
)

type Handler struct {
	providers *provider.Registry
	linker    *link.Orchestrator
	sessions  *session.Materializer
	codec     *session.Codec
	revoked   *session.RevocationStore
	creds     *credentials.Service // nil disables password routes
}

func NewHandler(
	registry *provider.Registry,
	linker *link.Orchestrator,
	sessions *session.Materializer,
	codec *session.Codec,
	revoked *session.RevocationStore,
	creds *credentials.Service,
) *Handler {
	return &Handler{
		providers: registry,
		linker:    linker,
		sessions:  sessions,
		codec:     codec,
		revoked:   revoked,
		creds:     creds,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/login/:provider", h.login)
	r.GET("/oauth/callback/:provider", h.callback)
	r.POST("/auth/logout", h.Logout)

	if h.creds != nil {
		r.POST("/auth/login", h.PasswordLogin)
		r.POST("/auth/register", h.PasswordRegister)
	}

	for _, route := range r.Routes() {
		log.Debug().Str("method", route.Method).Str("path", route.Path).Msg("route registered")
	}
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state := generateState(c)
	_, codeChallenge := generatePKCE(c)

	authURL := p.AuthCodeURL(state, codeChallenge)
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}

	errParam := c.Query("error")
	if errParam != "" {
		log.Warn().
			Str("provider", providerName).
			Str("error", errParam).
			Str("desc", c.Query("error_description")).
			Msg("oidc callback returned error")

		c.Redirect(http.StatusFound, "/login")
		return
	}

	code := c.Query("code")
	if code == "" {
		log.Error().Msg("oidc callback missing code and error")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "missing pkce verifier",
		})
		return
	}

	cb, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
		})
		return
	}

	outcome, err := h.linker.SignIn(c.Request.Context(), cb)
	if err != nil {
		// Hard failure (e.g. create during auto-create threw). Keep the
		// response generic; do not leak whether the account exists.
		log.Error().Err(err).Str("provider", providerName).Msg("sign-in failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "authentication failed",
		})
		return
	}
	if !outcome.Allowed() {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	// Mint the token with the subject only, then materialize the linkage
	// before it ever reaches the client.
	tok, err := h.sessions.Refresh(c.Request.Context(), &session.Token{
		Subject: cb.Identity.SubjectID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}
	if tok == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if !h.issueSession(c, tok) {
		return
	}

	log.Info().
		Str("provider", providerName).
		Str("item_id", tok.ItemID).
		Str("outcome", outcome.State.String()).
		Str("ip", c.ClientIP()).
		Msg("sign-in succeeded")

	c.JSON(http.StatusOK, gin.H{
		"status": "authenticated",
	})
}

// issueSession signs the token and sets the session cookie. Reports false
// after writing an error response.
func (h *Handler) issueSession(c *gin.Context, tok *session.Token) bool {
	signed, err := h.codec.Encode(tok)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return false
	}

	expires := tok.Expires
	if expires.IsZero() {
		expires = time.Now().Add(session.TTL)
	}

	session.SetCookie(c.Writer, signed, expires, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

// Session returns the derived session view for the authenticated request.
func (h *Handler) Session(c *gin.Context) {
	view, ok := middleware.SessionViewFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Logout(c *gin.Context) {
	// Revoke best-effort; the cookie is cleared regardless.
	if cookie, err := c.Request.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if tok, err := h.codec.Decode(cookie.Value); err == nil && h.revoked != nil {
			_ = h.revoked.Revoke(c.Request.Context(), tok)
			log.Info().
				Str("ip", c.ClientIP()).
				Msg("session revoked on logout")
		}
	}

	session.ClearCookie(c.Writer, session.CookieOptions{
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// Idempotent response
	c.Status(http.StatusNoContent)
}
