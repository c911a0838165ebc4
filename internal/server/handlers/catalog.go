package handlers

import (
	"net/http"

	"sco-server/internal/catalog"
	"sco-server/internal/shared/response"
)

type CatalogResponse struct {
	Digest string         `json:"digest"`
	Items  []catalog.Item `json:"items"`
}

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, CatalogResponse{
		Digest: h.catalog.Digest(),
		Items:  h.catalog.Items(),
	})
}
