package catalog

import (
	"net/http"

	"github.com/frahmantamala/credit-payments/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	catalog *Catalog
}

func NewHandler(baseHandler *transport.BaseHandler, catalog *Catalog) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		catalog:     catalog,
	}
}

type PackagesResponse struct {
	Packages []Package `json:"packages"`
}

func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, PackagesResponse{Packages: h.catalog.All()})
}
