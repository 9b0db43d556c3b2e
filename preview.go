package folio

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const previewKey = "preview"

// IsPreview reports whether the request belongs to a preview session.
func IsPreview(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	on, ok := sess.Values[previewKey].(bool)
	return ok && on
}

func setPreviewSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[previewKey] = true
	return sess.Save(c.Request(), c.Response())
}

func clearPreviewSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// handlePreview enters preview mode when the shared secret matches, then
// redirects to the page being previewed.
func (a *App) handlePreview(c echo.Context) error {
	if a.previewRepo == nil || a.Config.PreviewSecret == "" {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	ip := c.RealIP()
	if !a.previewLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many attempts. Try again later.")
	}
	secret := c.QueryParam("secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(a.Config.PreviewSecret)) != 1 {
		a.previewLimiter.Record(ip)
		a.Logger.Warn("preview secret rejected", zap.String("ip", ip))
		return c.String(http.StatusUnauthorized, "Invalid preview secret")
	}
	if err := setPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, SafeRedirect(c.QueryParam("redirect")))
}

func (a *App) handlePreviewExit(c echo.Context) error {
	if err := clearPreviewSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, sameHostReferer(c.Request().Referer(), c.Request().Host))
}
