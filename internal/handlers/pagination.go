package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// parsePagination reads limit and offset. Invalid values fall back to the
// defaults and a limit above maxPageSize is clamped.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = min(l, maxPageSize)
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o > 0 {
		offset = o
	}
	return
}
