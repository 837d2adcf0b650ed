package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/service"
)

type SubscriptionHTTP struct {
	Svc *service.SubscriptionService
}

func (h *SubscriptionHTTP) Toggle(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	channelID, err := req.UUIDParam("channelId")
	if err != nil {
		return err
	}
	res, err := h.Svc.Toggle(c.Request().Context(), req.Identity, channelID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res, res.Action+" successfully")
}

func (h *SubscriptionHTTP) Subscribers(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	channelID, err := req.UUIDParam("channelId")
	if err != nil {
		return err
	}
	page, limit := pageParams(req.Query)
	res, err := h.Svc.ListSubscribers(c.Request().Context(), channelID, page, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res, "subscribers fetched successfully")
}

func (h *SubscriptionHTTP) Count(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	channelID, err := req.UUIDParam("channelId")
	if err != nil {
		return err
	}
	res, err := h.Svc.Count(c.Request().Context(), req.Identity, channelID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res, "subscriber count fetched successfully")
}

func (h *SubscriptionHTTP) Status(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	channelID, err := req.UUIDParam("channelId")
	if err != nil {
		return err
	}
	subscribed, err := h.Svc.IsSubscribed(c.Request().Context(), req.Identity, channelID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, echo.Map{"isSubscribed": subscribed}, "subscription status fetched successfully")
}

// Subscriptions lists the channels subscriberId follows, or the caller's own when the param is absent.
func (h *SubscriptionHTTP) Subscriptions(c echo.Context) error {
	req, err := authedRequest[NoBody](c)
	if err != nil {
		return err
	}
	subscriberID := req.Identity
	if _, ok := req.Params["subscriberId"]; ok {
		if subscriberID, err = req.UUIDParam("subscriberId"); err != nil {
			return err
		}
	}
	page, limit := pageParams(req.Query)
	res, err := h.Svc.ListSubscriptions(c.Request().Context(), subscriberID, page, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res, "subscribed channels fetched successfully")
}
