package utils

import "github.com/gin-gonic/gin"

// Success writes a 200 response with payload as the body
func Success(c *gin.Context, payload any) {
	c.JSON(200, payload)
}

// Error writes {"error": msg}
func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"error": msg,
	})
}

// StageError writes {"error": msg, "stage": stage} for failures inside a model call
func StageError(c *gin.Context, code int, stage, msg string) {
	c.JSON(code, gin.H{
		"error": msg,
		"stage": stage,
	})
}
