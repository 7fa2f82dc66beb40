package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers issuance and resolution routes.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "issue-link",
		Method:      http.MethodPost,
		Path:        "/api/shorten",
		Summary:     "Create short link",
		Description: "Issues a new random token for the URL.",
		Tags:        []string{"Links"},
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, h.IssueLink)

	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/api/links/{token}",
		Summary:     "Get link",
		Description: "Returns the destination stored for the token.",
		Tags:        []string{"Links"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetLink)

	huma.Register(api, huma.Operation{
		OperationID:   "redirect",
		Method:        http.MethodGet,
		Path:          "/t/{token}",
		Summary:       "Redirect to destination",
		Description:   "Redirects to the URL stored for the token, or renders a not-found page.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusTemporaryRedirect,
	}, h.Redirect)
}
