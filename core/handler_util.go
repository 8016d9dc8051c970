package core

import "github.com/gin-gonic/gin"

// respondError sends the unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondFieldError is respondError plus the name of the offending field.
func respondFieldError(c *gin.Context, status int, code, message, field string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message, "field": field}})
}
