package httpapi

import (
	"net/http"

	"sociomile-gateway/internal/session"

	"github.com/gin-gonic/gin"
)

// Page is a placeholder view: it reports which page was entered and for whom.
// Guards run before it; reaching it means the navigation was admitted.
func Page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"page": name, "path": c.Request.URL.Path}
		if sess, ok := session.FromGin(c); ok {
			st := sess.State()
			body["authenticated"] = st.IsAuthenticated()
			if st.Identity != nil {
				body["user"] = st.Identity
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
