package appwrite

import (
	"github.com/s0up4200/reelbox/docstore"
)

// documentList is the response of the list documents endpoint
type documentList struct {
	Total     int                 `json:"total"`
	Documents []docstore.Document `json:"documents"`
}

type createRequest struct {
	DocumentID  string         `json:"documentId"`
	Data        map[string]any `json:"data"`
	Permissions []string       `json:"permissions,omitempty"`
}

type updateRequest struct {
	Data map[string]any `json:"data"`
}

// errorResponse is the Appwrite error body
type errorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Version string `json:"version"`
}
