package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/deppfellow/formula-lab/internal/server"
	"github.com/labstack/echo/v4"
)

type SystemHandler struct {
	Handler
	now func() time.Time
}

func NewSystemHandler(s *server.Server) *SystemHandler {
	return &SystemHandler{Handler: NewHandler(s), now: time.Now}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ConnectionResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type RouteInfo struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
	Name    string   `json:"name"`
}

type RoutesResponse struct {
	Routes []RouteInfo `json:"routes"`
}

func (h *SystemHandler) Welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, MessageResponse{Message: "Welcome to the Cosmetic Formula Lab API"})
}

func (h *SystemHandler) TestConnection(c echo.Context) error {
	return c.JSON(http.StatusOK, ConnectionResponse{
		Status:    "success",
		Message:   "Backend connection successful",
		Timestamp: h.now().UTC(),
	})
}

// Routes lists the registered routes, one entry per path.
func (h *SystemHandler) Routes(c echo.Context) error {
	byPath := make(map[string]*RouteInfo)
	for _, r := range c.Echo().Routes() {
		info, ok := byPath[r.Path]
		if !ok {
			info = &RouteInfo{Path: r.Path, Name: r.Name}
			byPath[r.Path] = info
		}
		info.Methods = append(info.Methods, r.Method)
	}

	out := RoutesResponse{Routes: make([]RouteInfo, 0, len(byPath))}
	for _, info := range byPath {
		sort.Strings(info.Methods)
		out.Routes = append(out.Routes, *info)
	}
	sort.Slice(out.Routes, func(i, j int) bool { return out.Routes[i].Path < out.Routes[j].Path })

	return c.JSON(http.StatusOK, out)
}
