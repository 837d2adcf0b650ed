package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/logging"
	"github.com/Skotchmaster/videohub/internal/service"
	"github.com/Skotchmaster/videohub/internal/storage"
	"github.com/Skotchmaster/videohub/internal/util"
)

type VideoHTTP struct {
	Svc     *service.VideoService
	Staging storage.Staging
}

func (h *VideoHTTP) cleanup(c echo.Context, staged []string) {
	if err := h.Staging.Remove(staged...); err != nil {
		logging.FromContext(c.Request().Context()).Warn("staging_cleanup_failed", "error", err)
	}
}

func pageParams(q map[string][]string) (int, int) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	page := util.ParseIntDefault(get("page"), util.DefaultPage)
	limit := util.ParseIntDefault(get("limit"), util.DefaultLimit)
	return util.Normalize(page, limit)
}

func (h *VideoHTTP) List(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	page, limit := pageParams(req.Query)

	res, err := h.Svc.List(c.Request().Context(), req.Identity, service.ListVideosInput{
		Query:    req.Query.Get("query"),
		SortBy:   req.Query.Get("sortBy"),
		SortType: req.Query.Get("sortType"),
		UserID:   req.Query.Get("userId"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res, "videos fetched successfully")
}

type publishBody struct {
	Title       string `form:"title"       json:"title"`
	Description string `form:"description" json:"description"`
	Duration    string `form:"duration"    json:"duration"`
}

func (h *VideoHTTP) Publish(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "video.publish")

	var staged []string
	defer func() { h.cleanup(c, staged) }()

	req, err := authedRequest[publishBody](c)
	if err != nil {
		return err
	}

	var duration float64
	if raw := strings.TrimSpace(req.Body.Duration); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil || duration < 0 {
			l.Warn("publish_error", "status", 400, "reason", "bad duration", "duration", raw)
			return apperr.BadRequest("invalid duration")
		}
	}

	videoPath, err := stage(c, h.Staging, "videoFile", &staged)
	if err != nil {
		return err
	}
	thumbPath, err := stage(c, h.Staging, "thumbnail", &staged)
	if err != nil {
		return err
	}

	v, err := h.Svc.Publish(ctx, req.Identity, service.PublishInput{
		Title:         req.Body.Title,
		Description:   req.Body.Description,
		Duration:      duration,
		VideoPath:     videoPath,
		ThumbnailPath: thumbPath,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, v, "video published successfully")
}

func (h *VideoHTTP) Search(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	page, limit := pageParams(req.Query)
	q := req.Query.Get("q")
	if q == "" {
		q = req.Query.Get("query")
	}

	res, err := h.Svc.FullTextSearch(c.Request().Context(), req.Identity, q, page, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res, "videos fetched successfully")
}

func (h *VideoHTTP) Get(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	id, err := req.UUIDParam("videoId")
	if err != nil {
		return err
	}
	v, err := h.Svc.Get(c.Request().Context(), req.Identity, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, v, "video fetched successfully")
}

type updateVideoBody struct {
	Title       string `form:"title"       json:"title"`
	Description string `form:"description" json:"description"`
}

func (h *VideoHTTP) Update(c echo.Context) error {
	var staged []string
	defer func() { h.cleanup(c, staged) }()

	req, err := authedRequest[updateVideoBody](c)
	if err != nil {
		return err
	}
	id, err := req.UUIDParam("videoId")
	if err != nil {
		return err
	}
	thumbPath, err := stage(c, h.Staging, "thumbnail", &staged)
	if err != nil {
		return err
	}

	v, err := h.Svc.Update(c.Request().Context(), req.Identity, id, service.UpdateVideoInput{
		Title:         req.Body.Title,
		Description:   req.Body.Description,
		ThumbnailPath: thumbPath,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, v, "video updated successfully")
}

func (h *VideoHTTP) Delete(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	id, err := req.UUIDParam("videoId")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(c.Request().Context(), req.Identity, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "video deleted successfully")
}

func (h *VideoHTTP) TogglePublish(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	id, err := req.UUIDParam("videoId")
	if err != nil {
		return err
	}
	published, err := h.Svc.TogglePublish(c.Request().Context(), req.Identity, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, echo.Map{"isPublished": published}, "publish status toggled successfully")
}
