package folio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	defaultImageWidth = 1200
	minImageWidth     = 100
	maxImageWidth     = 2400
	imageWidthStep    = 100
	jpegQuality       = 80
	maxSourceSize     = 25 << 20 // 25MB
)

var errImageUpstream = errors.New("folio: image upstream")

// normalizeWidth clamps a requested width and rounds it up to the next
// step, so arbitrary widths cannot fill the cache with variants.
func normalizeWidth(w int) int {
	if w <= minImageWidth {
		return minImageWidth
	}
	if w >= maxImageWidth {
		return maxImageWidth
	}
	if r := w % imageWidthStep; r != 0 {
		w += imageWidthStep - r
	}
	return w
}

// assetURL validates an image source against the allowed CMS asset hosts.
// Protocol-relative URLs are promoted to https.
func (a *App) assetURL(raw string) (*url.URL, error) {
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid image source")
	}
	for _, h := range a.Config.AssetHosts {
		if strings.EqualFold(u.Hostname(), h) {
			return u, nil
		}
	}
	return nil, echo.NewHTTPError(http.StatusForbidden, "image host not allowed")
}

// processImage decodes an image from src, resizes it to at most maxWidth,
// flattens transparency onto white, and encodes it as JPEG.
func processImage(src io.Reader, maxWidth int) ([]byte, int, int, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, errors.New("decode image: empty bounds")
	}
	if w > maxWidth {
		h = max(1, h*maxWidth/w)
		w = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

func (a *App) fetchAndResize(ctx context.Context, src string, width int) (CachedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return CachedImage{}, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return CachedImage{}, fmt.Errorf("%w: %v", errImageUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return CachedImage{}, fmt.Errorf("%w: status %d", errImageUpstream, resp.StatusCode)
	}

	data, w, h, err := processImage(io.LimitReader(resp.Body, maxSourceSize), width)
	if err != nil {
		return CachedImage{}, err
	}
	return CachedImage{
		Key:         imageCacheKey(src, width),
		Source:      src,
		ContentType: "image/jpeg",
		Width:       w,
		Height:      h,
		Data:        data,
	}, nil
}

func imageCacheKey(src string, width int) string {
	return strconv.Itoa(width) + ":" + src
}

// handleImage serves a resized copy of a CMS image: GET /_img?src=&w=.
// Results are cached in SQLite; concurrent requests for the same variant
// share one upstream fetch.
func (a *App) handleImage(c echo.Context) error {
	u, err := a.assetURL(c.QueryParam("src"))
	if err != nil {
		a.Metrics.imageOutcome("rejected")
		return err
	}
	width := defaultImageWidth
	if q := c.QueryParam("w"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			a.Metrics.imageOutcome("rejected")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid width")
		}
		width = n
	}
	width = normalizeWidth(width)
	src := u.String()
	key := imageCacheKey(src, width)

	if img, err := a.Store.GetImage(key); err == nil {
		a.Metrics.imageOutcome("hit")
		return c.Blob(http.StatusOK, img.ContentType, img.Data)
	} else if !errors.Is(err, ErrNotFound) {
		a.Logger.Error("image cache read failed", zap.String("key", key), zap.Error(err))
	}

	ctx := context.WithoutCancel(c.Request().Context())
	v, err, _ := a.imageGroup.Do(key, func() (any, error) {
		img, err := a.fetchAndResize(ctx, src, width)
		if err != nil {
			return nil, err
		}
		if err := a.Store.SaveImage(img); err != nil {
			a.Logger.Error("image cache write failed", zap.String("key", key), zap.Error(err))
		}
		return img, nil
	})
	if err != nil {
		a.Metrics.imageOutcome("error")
		a.Logger.Warn("image proxy failed", zap.String("src", src), zap.Error(err))
		return c.String(http.StatusBadGateway, "image unavailable")
	}
	img := v.(CachedImage)
	a.Metrics.imageOutcome("miss")
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}
