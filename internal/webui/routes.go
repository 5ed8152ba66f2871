package webui

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/keshon/server-warden/internal/permission"
)

const sessionCookie = "warden_session"

// loginPage is the whole front-end this package ships; anything richer lives
// outside this system.
const loginPage = `<!DOCTYPE html>
<html><head><title>server-warden</title></head><body>
<h3>Permission manager login</h3>
<form method="post" action="login">
  <input type="password" name="secret_key" placeholder="secret key" autofocus>
  <button type="submit">Login</button>
</form>
</body></html>`

// sessionSet holds the tokens of logged-in sessions. Single shared secret,
// single process; nothing fancier is warranted.
type sessionSet struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func newSessionSet() *sessionSet {
	return &sessionSet{tokens: make(map[string]bool)}
}

func (s *sessionSet) issue() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	token := hex.EncodeToString(buf)
	s.mu.Lock()
	s.tokens[token] = true
	s.mu.Unlock()
	return token
}

func (s *sessionSet) valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[token]
}

func (s *sessionSet) drop(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

func (s *Server) routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Brute-forcing the shared secret is the only attack surface worth
	// throttling.
	loginLimiter := rate.NewLimiter(rate.Limit(1), 5)

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/login")
	})
	r.GET("/login", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
	})
	r.POST("/login", func(c *gin.Context) {
		if !loginLimiter.Allow() {
			fail(c, http.StatusTooManyRequests, "too many login attempts, slow down")
			return
		}
		secret := c.PostForm("secret_key")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
			fail(c, http.StatusUnauthorized, "login failed, check the secret key")
			return
		}
		token := s.sessions.issue()
		c.SetCookie(sessionCookie, token, 0, "/", "", false, true)
		ok(c, "logged in", nil)
	})
	r.GET("/logout", func(c *gin.Context) {
		if token, err := c.Cookie(sessionCookie); err == nil {
			s.sessions.drop(token)
		}
		c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
		ok(c, "logged out", nil)
	})

	api := r.Group("/api", s.requireSession)
	api.GET("/plugins", s.handlePlugins)
	api.GET("/plugin/:name/commands", s.handlePluginCommands)
	api.POST("/plugin/:name/set-permission", s.handleSetPluginPermission)
	api.POST("/command/:plugin/:handler/set-permission", s.handleSetCommandPermission)
	api.POST("/command/:plugin/:handler/set-name", s.handleSetCommandName)
	api.POST("/command/:plugin/:handler/set-aliases", s.handleSetCommandAliases)

	return r
}

func (s *Server) requireSession(c *gin.Context) {
	token, err := c.Cookie(sessionCookie)
	if err != nil || !s.sessions.valid(token) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "login required"})
		return
	}
	c.Next()
}

func (s *Server) handlePlugins(c *gin.Context) {
	ok(c, "", s.svc.ListPlugins())
}

func (s *Server) handlePluginCommands(c *gin.Context) {
	commands, err := s.svc.PluginCommands(c.Param("name"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, "", commands)
}

func (s *Server) handleSetPluginPermission(c *gin.Context) {
	var body struct {
		Permission string `json:"permission"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.svc.SetPluginPermission(c.Param("name"), body.Permission)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, "permissions updated", result)
}

func (s *Server) handleSetCommandPermission(c *gin.Context) {
	var body struct {
		Permission string `json:"permission"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.svc.SetCommandPermission(c.Param("plugin"), c.Param("handler"), body.Permission); err != nil {
		failErr(c, err)
		return
	}
	ok(c, "permission updated", nil)
}

func (s *Server) handleSetCommandName(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.svc.SetCommandName(c.Param("plugin"), c.Param("handler"), body.Name); err != nil {
		failErr(c, err)
		return
	}
	ok(c, "name updated", nil)
}

func (s *Server) handleSetCommandAliases(c *gin.Context) {
	var body struct {
		Aliases []string `json:"aliases"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "aliases must be a list of strings")
		return
	}
	if err := s.svc.SetCommandAliases(c.Param("plugin"), c.Param("handler"), body.Aliases); err != nil {
		failErr(c, err)
		return
	}
	ok(c, "aliases updated", nil)
}

func ok(c *gin.Context, message string, data any) {
	resp := gin.H{"success": true, "message": message}
	if data != nil {
		resp["data"] = data
	}
	c.JSON(http.StatusOK, resp)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func failErr(c *gin.Context, err error) {
	fail(c, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, permission.ErrPluginNotFound), errors.Is(err, permission.ErrCommandNotFound):
		return http.StatusNotFound
	case errors.Is(err, permission.ErrInvalidPermission),
		errors.Is(err, permission.ErrEmptyAlias),
		errors.Is(err, permission.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
