package handler

import "net/http"

// NewRouter registers the course resource routes (Go 1.22+ patterns)
func NewRouter(resources *ResourceHandler, uploads *UploadHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", resources.HealthCheck)

	// Browsing
	mux.HandleFunc("GET /api/courses/{courseID}/tree", resources.GetTree)
	mux.HandleFunc("GET /api/courses/{courseID}/resources", resources.Browse)
	mux.HandleFunc("GET /api/courses/{courseID}/resources/preview", resources.Preview)

	// Mutations
	mux.HandleFunc("POST /api/courses/{courseID}/folders", resources.CreateFolder)
	mux.HandleFunc("POST /api/courses/{courseID}/uploads", uploads.Upload)
	mux.HandleFunc("PATCH /api/courses/{courseID}/resources/rename", resources.Rename)
	mux.HandleFunc("PATCH /api/courses/{courseID}/resources/move", resources.Move)
	mux.HandleFunc("DELETE /api/courses/{courseID}/resources", resources.Delete)

	return mux
}
