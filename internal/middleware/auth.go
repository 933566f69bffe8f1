package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/session"
)

// Context keys the middleware populates for downstream handlers.
const (
	SessionTokenKey = "sessionToken" // *session.Token
	SessionViewKey  = "sessionView"  // map[string]any
)

// SessionViewFromContext extracts the derived session view.
func SessionViewFromContext(c *gin.Context) (map[string]any, bool) {
	v, ok := c.Get(SessionViewKey)
	if !ok {
		return nil, false
	}
	view, ok := v.(map[string]any)
	return view, ok
}

// TokenFromContext extracts the authenticated session token.
func TokenFromContext(c *gin.Context) (*session.Token, bool) {
	v, ok := c.Get(SessionTokenKey)
	if !ok {
		return nil, false
	}
	tok, ok := v.(*session.Token)
	return tok, ok
}

// AuthMiddleware authenticates requests from the session token cookie.
// Tokens that have not been resolved against the list yet are refreshed
// lazily here, once, and the cookie is re-issued with the linkage.
type AuthMiddleware struct {
	Codec    *session.Codec
	Sessions *session.Materializer
	Revoked  *session.RevocationStore
}

func NewAuthMiddleware(
	codec *session.Codec,
	sessions *session.Materializer,
	revoked *session.RevocationStore,
) *AuthMiddleware {
	return &AuthMiddleware{
		Codec:    codec,
		Sessions: sessions,
		Revoked:  revoked,
	}
}

func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Request.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		tok, err := a.Codec.Decode(cookie.Value)
		if err != nil {
			a.clear(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		// Logged-out tokens stay invalid until their natural expiry.
		if a.Revoked != nil {
			revoked, err := a.Revoked.Revoked(c.Request.Context(), tok)
			if err != nil || revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
		}

		fresh, err := a.Sessions.Refresh(c.Request.Context(), tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session error"})
			return
		}
		if fresh == nil {
			// Subject no longer resolves to a record; treat as logged out.
			a.clear(c)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if fresh.ItemID != tok.ItemID {
			signed, err := a.Codec.Encode(fresh)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session error"})
				return
			}
			session.SetCookie(c.Writer, signed, fresh.Expires, session.CookieOptions{
				Secure:   true,
				SameSite: http.SameSiteLaxMode,
			})
			log.Debug().
				Str("item_id", fresh.ItemID).
				Msg("session token lazily resolved and re-issued")
		}

		c.Set(SessionTokenKey, fresh)
		c.Set(SessionViewKey, session.Project(map[string]any{
			"expires": fresh.Expires.UTC().Format("2006-01-02T15:04:05.000Z"),
		}, fresh))

		c.Next()
	}
}

func (a *AuthMiddleware) clear(c *gin.Context) {
	session.ClearCookie(c.Writer, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
