package api

// Package api exposes the download jobs over HTTP with gin.
