package http

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/geowork/roadpack/internal/core/domain"
)

// regionPattern constrains region identifiers used in paths and file
// names. Anything else is rejected before it can touch the filesystem.
var regionPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"uptime": time.Since(startedAt).String(),
		})
	}
}

// ReadyHandler checks that the artifact directories and cache are usable.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		checks := make(map[string]string)
		allOK := true

		for name, dir := range map[string]string{
			"bundle_dir": deps.BundleDir,
			"store_dir":  deps.StoreDir,
		} {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				checks[name] = "missing: " + dir
				allOK = false
			} else {
				checks[name] = "ok"
			}
		}

		if deps.Cache != nil {
			_, err := deps.Cache.Get(c.Context(), "__health_check__")
			// A missing key is the expected answer here.
			if err != nil && err.Error() != "valkey nil message" {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}

// BundleHandler serves a region's bundle file for download. kind selects
// the core bundle (default) or one of the heavy bundles.
func BundleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		region := c.Params("region")
		if !regionPattern.MatchString(region) {
			return errBadRequest(c, "invalid region identifier")
		}

		kind := c.Params("kind", domain.BundleCore)
		var name string
		switch kind {
		case domain.BundleCore:
			name = domain.CoreBundleName(region)
		case domain.BundleSurfaces, domain.BundleWays:
			name = domain.HeavyBundleName(region, kind)
		default:
			return errBadRequest(c, "bundle kind must be core, surfaces, or ways")
		}

		path := filepath.Join(deps.BundleDir, name)
		if _, err := os.Stat(path); err != nil {
			return errNotFound(c, "bundle not found: "+name)
		}

		c.Set(fiber.HeaderContentType, "application/gzip")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
		c.Set("Cache-Control", "public, max-age=3600")
		return c.SendFile(path, true)
	}
}

// CalmingNearbyHandler returns traffic-calming records near a point.
func CalmingNearbyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		region, lat, lon, radius, limit, err := nearbyParams(c)
		if err != nil {
			return err
		}

		recs, qerr := deps.Queries.TrafficCalmingNearby(c.Context(), region, lat, lon, radius, limit)
		if qerr != nil {
			if errors.Is(qerr, fs.ErrNotExist) {
				return errNotFound(c, "no store built for region "+region)
			}
			return errInternal(c, qerr.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(recs)
	}
}

// RoundaboutsNearbyHandler returns roundabouts near a point.
func RoundaboutsNearbyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		region, lat, lon, radius, limit, err := nearbyParams(c)
		if err != nil {
			return err
		}

		recs, qerr := deps.Queries.RoundaboutsNearby(c.Context(), region, lat, lon, radius, limit)
		if qerr != nil {
			if errors.Is(qerr, fs.ErrNotExist) {
				return errNotFound(c, "no store built for region "+region)
			}
			return errInternal(c, qerr.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(recs)
	}
}

// RegionStatsHandler returns row counts and metadata from a region store.
func RegionStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		region := c.Params("region")
		if !regionPattern.MatchString(region) {
			return errBadRequest(c, "invalid region identifier")
		}

		stats, err := deps.Queries.Stats(c.Context(), region)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return errNotFound(c, "no store built for region "+region)
			}
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

func nearbyParams(c *fiber.Ctx) (region string, lat, lon, radius float64, limit int, err error) {
	region = c.Params("region")
	if !regionPattern.MatchString(region) {
		return "", 0, 0, 0, 0, errBadRequest(c, "invalid region identifier")
	}

	// Presence is checked on the raw query values so that the legitimate
	// coordinate (0, 0) is not mistaken for missing parameters.
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return "", 0, 0, 0, 0, errBadRequest(c, "lat and lon are required")
	}
	var perr error
	if lat, perr = strconv.ParseFloat(latStr, 64); perr != nil {
		return "", 0, 0, 0, 0, errBadRequest(c, "lat must be a number")
	}
	if lon, perr = strconv.ParseFloat(lonStr, 64); perr != nil {
		return "", 0, 0, 0, 0, errBadRequest(c, "lon must be a number")
	}

	radius = c.QueryFloat("radius", 500)
	limit = c.QueryInt("limit", 50)

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", 0, 0, 0, 0, errBadRequest(c, "lat/lon out of range")
	}
	if radius <= 0 || radius > 50000 {
		return "", 0, 0, 0, 0, errBadRequest(c, "radius must be between 1 and 50000 meters")
	}
	return region, lat, lon, radius, limit, nil
}
