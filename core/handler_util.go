package core

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondStoreError logs the underlying store failure server-side and
// returns a generic 500 so nothing about the query leaks to the caller.
func respondStoreError(c *gin.Context, op string, err error) {
	log.Printf("%s: store error: %v", op, err)
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "storage failure")
}

// respondInternalError is respondStoreError's sibling for failures that
// are not store operations (token signing, hashing, session writes).
func respondInternalError(c *gin.Context, op string, err error) {
	log.Printf("%s: %v", op, err)
	respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error")
}
