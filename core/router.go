package core

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(
	cfg Config,
	store *sessions.CookieStore,
	resolver IdentityResolver,
	issuer SessionIssuer,
	members MemberRepository,
	externals ExternalMemberRepository,
	tickets ResetTicketStore,
	google *GoogleAuthenticator,
	hasher PasswordHasher,
) *gin.Engine {
	r := gin.Default()

	// Global middleware: origin/CORS -> gorilla session -> CSRF -> claims
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, store))
	r.Use(CSRFMiddleware(cfg, store))
	r.Use(AuthClaimsMiddleware(issuer))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Unauthenticated entry point. A valid session goes straight to the
	// dashboard; everyone else gets told to log in.
	r.GET("/", func(c *gin.Context) {
		if _, ok := claimsFrom(c); ok {
			c.Redirect(http.StatusFound, cfg.DashboardURL)
			return
		}
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				ID       string `json:"id"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if strings.TrimSpace(req.ID) == "" || req.Password == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id and password are required")
				return
			}

			seed, err := resolver.Resolve(LocalCredentials{ID: strings.TrimSpace(req.ID), Password: req.Password})
			if err != nil {
				if errors.Is(err, ErrInvalidCredentials) {
					// Same response for unknown id and wrong password.
					respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "id or password is wrong")
					return
				}
				respondStoreError(c, "login", err)
				return
			}

			token, err := issuer.Issue(seed)
			if err != nil {
				respondInternalError(c, "login: issue token", err)
				return
			}
			setSessionCookie(c, cfg, token, int(cfg.TokenTTL.Seconds()))

			c.JSON(http.StatusOK, gin.H{"member": gin.H{"id": seed.SubjectID, "role": seed.Role}})
		})

		api.POST("/auth/logout", func(c *gin.Context) {
			clearSessionCookie(c, cfg)
			c.Status(http.StatusNoContent)
		})

		api.GET("/auth/me", RequireAuth(), func(c *gin.Context) {
			claims, _ := claimsFrom(c)
			if claims.Provider != "" {
				// External members carry no local profile row worth joining.
				c.JSON(http.StatusOK, gin.H{
					"id":       claims.SubjectID,
					"role":     claims.Role,
					"provider": claims.Provider,
				})
				return
			}

			ctx := c.Request.Context()
			m, err := members.FindByID(ctx, claims.SubjectID)
			if err != nil {
				if errors.Is(err, ErrMemberNotFound) {
					respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
					return
				}
				respondStoreError(c, "auth/me", err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"id":         m.ID,
				"username":   m.Username,
				"role":       m.Role,
				"created_at": m.CreatedAt,
			})
		})

		api.GET("/auth/google", func(c *gin.Context) {
			if !google.Enabled() {
				respondError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "external login is not configured")
				return
			}
			state, err := newOAuthState()
			if err != nil {
				respondInternalError(c, "auth/google: state", err)
				return
			}

			sessionAny, _ := c.Get(gorillaKey)
			sess, _ := sessionAny.(*sessions.Session)
			sess.Values[oauthStateKey] = state
			applySessionOptions(cfg, sess)
			if err := sess.Save(c.Request, c.Writer); err != nil {
				respondInternalError(c, "auth/google: save session", err)
				return
			}

			c.Redirect(http.StatusFound, google.ConsentURL(state))
		})

		api.GET("/auth/google/callback", func(c *gin.Context) {
			if !google.Enabled() {
				respondError(c, http.StatusServiceUnavailable, "UNAVAILABLE", "external login is not configured")
				return
			}

			sessionAny, _ := c.Get(gorillaKey)
			sess, _ := sessionAny.(*sessions.Session)
			want, _ := sess.Values[oauthStateKey].(string)
			delete(sess.Values, oauthStateKey)
			applySessionOptions(cfg, sess)
			_ = sess.Save(c.Request, c.Writer)

			state := c.Query("state")
			code := c.Query("code")
			if want == "" || state == "" || state != want || code == "" {
				respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "external login rejected")
				return
			}

			ctx := c.Request.Context()
			assertion, err := google.Exchange(ctx, code)
			if err != nil {
				respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "external login rejected")
				return
			}

			// First login is implicit registration; this never fails
			// on "not found".
			seed, err := resolver.Resolve(assertion)
			if err != nil {
				respondStoreError(c, "auth/google/callback", err)
				return
			}

			token, err := issuer.Issue(seed)
			if err != nil {
				respondInternalError(c, "auth/google/callback: issue token", err)
				return
			}
			setSessionCookie(c, cfg, token, int(cfg.TokenTTL.Seconds()))

			c.Redirect(http.StatusFound, cfg.DashboardURL)
		})

		api.POST("/members", func(c *gin.Context) {
			var req struct {
				ID       string `json:"id"`
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			req.ID = strings.TrimSpace(req.ID)
			req.Username = strings.TrimSpace(req.Username)
			if req.ID == "" || req.Username == "" || req.Password == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id, username and password are required")
				return
			}

			hash, err := hasher.Hash(req.Password)
			if err != nil {
				respondInternalError(c, "signup: hash password", err)
				return
			}

			ctx := c.Request.Context()
			m, err := members.Create(ctx, req.ID, req.Username, hash, RoleMember)
			if err != nil {
				if errors.Is(err, ErrDuplicateID) {
					respondError(c, http.StatusConflict, "CONFLICT", "id already exists")
					return
				}
				respondStoreError(c, "signup", err)
				return
			}

			c.JSON(http.StatusCreated, gin.H{
				"id":         m.ID,
				"username":   m.Username,
				"role":       m.Role,
				"created_at": m.CreatedAt,
			})
		})

		api.GET("/members", AdminOnly(), func(c *gin.Context) {
			f := MemberFilter{
				ID:         c.Query("id"),
				Username:   c.Query("username"),
				CreateDate: c.Query("createdate"),
			}
			// Precedence: a non-empty id or username filter wins and
			// the date is never consulted, so only check it when it
			// is the filter that will run.
			if strings.TrimSpace(f.ID) == "" && strings.TrimSpace(f.Username) == "" {
				if err := validateDateFilter(f.CreateDate); err != nil {
					respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
					return
				}
			}

			ctx := c.Request.Context()
			items, err := members.Search(ctx, f)
			if err != nil {
				respondStoreError(c, "members", err)
				return
			}
			c.JSON(http.StatusOK, items)
		})

		api.GET("/members/external", AdminOnly(), func(c *gin.Context) {
			f := ExternalMemberFilter{
				Email:      c.Query("email"),
				CreateDate: c.Query("createdate"),
			}
			if strings.TrimSpace(f.Email) == "" {
				if err := validateDateFilter(f.CreateDate); err != nil {
					respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
					return
				}
			}

			ctx := c.Request.Context()
			items, err := externals.Search(ctx, f)
			if err != nil {
				respondStoreError(c, "members/external", err)
				return
			}
			c.JSON(http.StatusOK, items)
		})

		api.POST("/auth/password/find", func(c *gin.Context) {
			var req struct {
				ID string `json:"id"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			req.ID = strings.TrimSpace(req.ID)
			if req.ID == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id is required")
				return
			}

			ctx := c.Request.Context()
			m, err := members.FindByID(ctx, req.ID)
			if err != nil {
				if errors.Is(err, ErrMemberNotFound) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "no such member")
					return
				}
				respondStoreError(c, "password/find", err)
				return
			}

			ticket, err := tickets.Issue(ctx, m.ID)
			if err != nil {
				respondStoreError(c, "password/find", err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"reset_ticket": ticket,
				"expires_in":   int(cfg.ResetTicketTTL.Seconds()),
			})
		})

		api.POST("/auth/password/reset", func(c *gin.Context) {
			var req struct {
				Ticket      string `json:"ticket"`
				NewPassword string `json:"new_password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if strings.TrimSpace(req.Ticket) == "" || req.NewPassword == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "ticket and new_password are required")
				return
			}

			ctx := c.Request.Context()
			memberID, err := tickets.Redeem(ctx, strings.TrimSpace(req.Ticket))
			if err != nil {
				if errors.Is(err, ErrTicketInvalid) {
					respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired reset ticket")
					return
				}
				respondStoreError(c, "password/reset", err)
				return
			}

			hash, err := hasher.Hash(req.NewPassword)
			if err != nil {
				respondInternalError(c, "password/reset: hash password", err)
				return
			}
			if err := members.UpdatePassword(ctx, memberID, hash); err != nil {
				respondStoreError(c, "password/reset", err)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}

	return r
}

// validateDateFilter accepts an empty value or a YYYY-MM-DD date.
// Anything else is rejected before it reaches the store.
func validateDateFilter(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return errors.New("createdate must be YYYY-MM-DD")
	}
	return nil
}
