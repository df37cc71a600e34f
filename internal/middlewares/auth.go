package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/hospitalcore/notification-service/internal/api/respond"
)

// Auth verifies the caller's service credential: a Bearer JWT signed with
// the shared service key (HS256). Requests without a valid credential never
// reach the dispatch pipeline.
func Auth(serviceKey string) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		header := c.GetHeader("Authorization")

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			respond.Fail(c.Writer, http.StatusUnauthorized, fmt.Errorf("you are not logged in, please provide a service key"))
			c.Abort()
			return
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(serviceKey), nil
		})
		if err != nil || !parsed.Valid {
			zlog.Logger.Warn().Err(err).Msg("service key verification failed")
			respond.Fail(c.Writer, http.StatusUnauthorized, fmt.Errorf("invalid service key"))
			c.Abort()
			return
		}

		c.Next()
	}
}
