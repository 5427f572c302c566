// Package dashboard gates the role-specific dashboard pages. Unlike the API
// middleware it answers with redirects so browsers land somewhere useful.
package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers/auth"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

const SignInRoute = "/signin"

type Authenticator interface {
	Authenticate(r *http.Request) (*models.User, error)
}

// Gate lets the request through when the session's role is one of roles. Callers
// without a session go to sign in; everyone else goes to their own home route.
func Gate(a Authenticator, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.Authenticate(c.Request)
		if auth.NoSession(err) {
			c.Redirect(http.StatusFound, SignInRoute)
			c.Abort()
			return
		}
		if err != nil {
			handlers.Fail(c, err)
			c.Abort()
			return
		}

		handlers.SetUser(c, user)
		for _, r := range roles {
			if user.Role != "" && user.Role == r {
				c.Next()
				return
			}
		}
		c.Redirect(http.StatusFound, auth.HomeRoute(user.Role))
		c.Abort()
	}
}

func Routes(r gin.IRouter, a Authenticator) {
	r.GET("/dashboard", Gate(a, models.RoleClient, models.RoleFoundingCircle, models.RoleSelectCircle, models.RoleCandidate), Home)
	r.GET("/dashboard/client", Gate(a, models.RoleClient), Page)
	r.GET("/dashboard/founding", Gate(a, models.RoleFoundingCircle), Page)
	r.GET("/dashboard/select", Gate(a, models.RoleSelectCircle), Page)
	r.GET("/dashboard/candidate", Gate(a, models.RoleCandidate), Page)
}

// Home sends the caller on to their role's dashboard.
func Home(c *gin.Context) {
	c.Redirect(http.StatusFound, auth.HomeRoute(handlers.CurrentUser(c).Role))
}

func Page(c *gin.Context) {
	user := handlers.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"page": c.FullPath(),
		"role": user.Role,
		"user": user,
	})
}
