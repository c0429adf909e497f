// README: Actor middleware; mutations carry an explicit actor, never ambient session state.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"depot/internal/types"
)

const actorKey = "depot.actor"

// Actor resolves the acting identity from the X-Actor-Id and X-Actor-Role
// headers (populated by the authenticating reverse proxy, which is outside
// this service). Mutating requests without an actor are rejected.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Actor-Id")
		role := types.Role(c.GetHeader("X-Actor-Role"))

		if id != "" {
			switch role {
			case types.RoleDriver, types.RoleDispatcher, types.RoleAdmin, types.RoleSystem:
			default:
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown actor role"})
				return
			}
			c.Set(actorKey, types.Actor{ID: types.ID(id), Role: role})
		} else if c.Request.Method != http.MethodGet {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing actor headers"})
			return
		}

		c.Next()
	}
}

// ActorFrom returns the actor attached by the middleware (zero value on
// unauthenticated reads).
func ActorFrom(c *gin.Context) types.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(types.Actor); ok {
			return a
		}
	}
	return types.Actor{}
}
