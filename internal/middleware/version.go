package middleware

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"invoiceflow/internal/common"

	"github.com/labstack/echo/v4"
)

// APIVersion represents API version information
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active", "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware provides API versioning functionality
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
	defaultVersion    string
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {
				Version: "v1",
				Status:  "active",
				Message: "Current stable API version",
			},
		},
		defaultVersion: "v1",
	}
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)

			if ver, exists := vm.supportedVersions[version]; exists {
				if ver.Status == "deprecated" && ver.SunsetDate != nil {
					h.Set("X-API-Deprecated", "true")
					h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
					h.Set("Warning", "299 invoiceflow \"This API version is deprecated and will be removed on "+ver.SunsetDate.Format("2006-01-02")+"\"")
				}
				h.Set("X-API-Message", ver.Message)
			}

			return next(c)
		}
	}
}

// VersionRoute creates a version-specific route group
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string) *echo.Group {
	group := e.Group("/" + version)
	group.Use(vm.VersionHeader(version))
	return group
}

// APIVersionResolver rejects unknown version prefixes and records the version on the context.
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersionFromPath(c.Request().URL.Path)
			if version == "" {
				c.Set("api_version", vm.defaultVersion)
				return next(c)
			}

			if _, supported := vm.supportedVersions[version]; !supported {
				return c.JSON(http.StatusNotFound, common.CreateErrorResponse(
					"UNSUPPORTED_VERSION",
					"Unsupported API version",
					map[string]string{"supported_versions": strings.Join(vm.SupportedVersions(), ", ")},
				))
			}
			c.Set("api_version", version)
			return next(c)
		}
	}
}

// Deprecate marks a version as deprecated from now until sunset.
func (vm *VersionMiddleware) Deprecate(version, message string, sunset time.Time) {
	ver, ok := vm.supportedVersions[version]
	if !ok {
		return
	}
	ver.Status = "deprecated"
	ver.SunsetDate = &sunset
	if message != "" {
		ver.Message = message
	}
	vm.supportedVersions[version] = ver
}

// SupportedVersions returns the servable versions in order.
func (vm *VersionMiddleware) SupportedVersions() []string {
	var versions []string
	for version, info := range vm.supportedVersions {
		if info.Status == "active" || info.Status == "deprecated" {
			versions = append(versions, version)
		}
	}
	sort.Strings(versions)
	return versions
}

// extractVersionFromPath reads a /vN prefix
func extractVersionFromPath(path string) string {
	if !strings.HasPrefix(path, "/v") {
		return ""
	}
	rest := path[2:]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return ""
	}
	return "v" + strconv.Itoa(n)
}
