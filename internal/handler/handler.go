package handler

import (
	"phrasecut/internal/media"
	"phrasecut/internal/service"
)

type Handler struct {
	Service *service.Service
	// Media is optional; it only feeds the health report.
	Media *media.Registry
}

func NewHandler(svc *service.Service, registry *media.Registry) Handler {
	return Handler{Service: svc, Media: registry}
}
